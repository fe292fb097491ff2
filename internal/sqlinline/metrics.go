package sqlinline

const QCountActiveUsersToday = `--sql 7e92a4b0-d1c8-45f3-8a67-b0395d2c41ea
select count(distinct user_id)
from user_usage
where date = $1::date;
`

const QSumUsageSinceAll = `--sql 48d6f1c2-3e0b-4975-ba14-cd72a9e85f30
select coalesce(sum(prompt_count), 0)
from user_usage
where date >= $1::date;
`

const QTopTemplateLabels = `--sql b15e09d7-6a43-4c28-97f0-3d8b52c6e1a4
select template_label, count(*)
from chat_history
where message_type = 'user'
  and template_label is not null
  and created_at >= $1::date
group by template_label
order by count(*) desc
limit 5;
`
