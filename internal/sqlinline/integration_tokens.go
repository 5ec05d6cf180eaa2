package sqlinline

// Provider API keys. One row per provider; rotating a key overwrites it.

const QSelectIntegrationToken = `--sql 68088f75-d028-4f32-b805-d3c54d9cc537
select token, updated_at
from integration_tokens
where provider = $1::text;
`

// QUpsertIntegrationToken returns true in its single column when the
// provider already had a key.
const QUpsertIntegrationToken = `--sql d7547dae-d3d7-4fca-9937-7da8be035d53
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, $3::jsonb)
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now()
returning not (xmax = 0) as rotated;
`
