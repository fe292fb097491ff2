package sqlinline

const QInsertUserMessage = `--sql 2d8f5c01-64ab-4e37-b19d-8e02a7c6f354
insert into chat_history (user_id, message, reply, message_type, template_label, created_at)
values ($1::text, $2::text, null, 'user', $3, now());
`

const QInsertBotReply = `--sql 9b47e2d8-0c15-4fa6-83b9-56d1a40e7c22
insert into chat_history (user_id, message, reply, message_type, template_label, created_at)
values ($1::text, null, $2::text, 'bot', $3, now());
`

const QSelectRecentHistory = `--sql 5c03b9f4-27de-48a1-96c5-e84f61d2a0b9
select id, user_id, coalesce(message, ''), coalesce(reply, ''), message_type, coalesce(template_label, ''), created_at
from chat_history
where user_id = $1::text
order by created_at desc
limit $2::int;
`
