package sqlinline

const QEnsureUsageRecord = `--sql 3f6b1d2a-9c44-4e81-b5a7-02d9e6c41f58
insert into user_usage (user_id, date, prompt_count, created_at, updated_at)
values ($1::text, $2::date, 0, now(), now())
on conflict (user_id, date) do nothing;
`

const QSelectUsageCount = `--sql 8a21c790-55fe-4b63-9d0c-7e3a48b6d214
select prompt_count
from user_usage
where user_id = $1::text and date = $2::date
limit 1;
`

const QSumUsageSince = `--sql c4e9f3b7-1a06-4d52-8eb1-95c2d07a4f63
select coalesce(sum(prompt_count), 0)
from user_usage
where user_id = $1::text and date >= $2::date;
`

const QIncrementUsage = `--sql 61d0a8e5-37b2-4c9f-a4d6-fb8512c93e07
update user_usage
set prompt_count = prompt_count + 1, updated_at = now()
where user_id = $1::text and date = $2::date
returning prompt_count;
`

const QResetUsageForDate = `--sql e7b34c16-8d5a-42f0-9a28-1c6f0d5b972e
update user_usage
set prompt_count = 0, updated_at = now()
where user_id = $1::text and date = $2::date;
`
