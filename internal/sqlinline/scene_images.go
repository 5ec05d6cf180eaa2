package sqlinline

const QInsertSceneImage = `--sql 2cb00837-0f81-4db3-9357-8d19b8668128
insert into scene_images(
  id,
  scene_id,
  story_id,
  scene_number,
  local_url,
  status,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::uuid,
  $3::uuid,
  $4::int,
  $5::text,
  'PROCESSING',
  now(),
  now()
)
returning created_at, updated_at;
`

const QUpdateSceneImage = `--sql a2ea08d8-7ed4-4db0-8527-a7dad7944ec1
update scene_images
set status = $2::text,
    local_url = coalesce(nullif($3::text, ''), local_url),
    error_message = $4::text,
    updated_at = now()
where id = $1::uuid;
`

const QMarkSceneImageUploaded = `--sql ed511c5d-45da-4843-a310-d530ba26c0ce
update scene_images
set b2_url = $2::text,
    status = 'COMPLETED',
    error_message = null,
    updated_at = now()
where id = $1::uuid;
`

const QListSceneImagesByStory = `--sql 00de1565-6a39-4a4c-b5f1-bfbe19415e16
select
  id::text,
  scene_id::text,
  story_id::text,
  scene_number,
  local_url,
  b2_url,
  status,
  error_message,
  created_at,
  updated_at
from scene_images
where story_id = $1::uuid
order by created_at asc, id asc;
`

const QDeleteSceneImagesByStory = `--sql b96e8a47-ff54-4ea6-8735-352da17a0581
delete from scene_images
where story_id = $1::uuid;
`

const QFailStaleSceneImages = `--sql 3a6cf3ce-df29-4908-a8b5-0c2cc19d7526
update scene_images
set status = 'FAILED',
    error_message = $2::text,
    updated_at = now()
where status = 'PROCESSING'
  and created_at < $1::timestamptz;
`
