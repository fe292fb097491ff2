// Package i18n selects the user-facing notice sentences. The service fronts
// an audience split between English and Chinese; everything else falls back
// to English.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"

	"server/internal/domain"
)

const (
	LocaleEN     = "en"
	LocaleZHHant = "zh-Hant"
	LocaleZHHans = "zh-Hans"
)

var supported = []language.Tag{
	language.English,
	language.TraditionalChinese,
	language.SimplifiedChinese,
}

var locales = []string{LocaleEN, LocaleZHHant, LocaleZHHans}

var matcher = language.NewMatcher(supported)

// Match resolves an Accept-Language header to one of the supported locales.
func Match(acceptLanguage, fallback string) string {
	header := acceptLanguage
	if header == "" {
		header = fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return LocaleEN
	}
	_, idx, _ := matcher.Match(tags...)
	return locales[idx]
}

var unsubscribedNotices = map[string]string{
	LocaleEN:     "You are not a subscribed member. Please subscribe to use the chatbot.",
	LocaleZHHant: "您尚未訂閱會員。請先訂閱後再使用聊天機器人。",
	LocaleZHHans: "您还不是订阅会员。请先订阅后再使用聊天机器人。",
}

var quotaNotices = map[string]map[domain.Period]string{
	LocaleEN: {
		domain.PeriodDaily:   "Daily limit reached. You have used %d/%d messages today.",
		domain.PeriodMonthly: "Monthly limit reached. You have used %d/%d messages this month.",
	},
	LocaleZHHant: {
		domain.PeriodDaily:   "已達每日上限。您今天已使用 %d/%d 則訊息。",
		domain.PeriodMonthly: "已達每月上限。您本月已使用 %d/%d 則訊息。",
	},
	LocaleZHHans: {
		domain.PeriodDaily:   "已达每日上限。您今天已使用 %d/%d 条消息。",
		domain.PeriodMonthly: "已达每月上限。您本月已使用 %d/%d 条消息。",
	},
}

// UnsubscribedNotice is the fixed friendly sentence shown instead of an error
// when an unsubscribed user tries to chat.
func UnsubscribedNotice(locale string) string {
	if msg, ok := unsubscribedNotices[locale]; ok {
		return msg
	}
	return unsubscribedNotices[LocaleEN]
}

// QuotaNotice renders the quota rejection sentence with the user's exact
// usage numbers.
func QuotaNotice(locale string, used, cap int, period domain.Period) string {
	table, ok := quotaNotices[locale]
	if !ok {
		table = quotaNotices[LocaleEN]
	}
	format, ok := table[period]
	if !ok {
		format = quotaNotices[LocaleEN][domain.PeriodDaily]
	}
	return fmt.Sprintf(format, used, cap)
}
