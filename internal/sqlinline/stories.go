package sqlinline

const QSelectStory = `--sql 235397b9-1eaa-453e-864e-ad32be8e4b3d
select id::text, title, description, coalesce(owner_id, ''), created_at, updated_at
from stories
where id = $1::uuid
limit 1;
`

// QInsertStoryWithScenes writes the story and all of its scenes in one
// statement. Scene columns arrive as parallel arrays.
const QInsertStoryWithScenes = `--sql 8086bcf1-7f51-4801-b9ad-38e83e770fec
with
ins_story as (
  insert into stories(id, title, description, owner_id, created_at, updated_at)
  values (gen_random_uuid(), $1::text, $2::text, nullif($3::text, ''), now(), now())
  returning id, created_at, updated_at
),
ins_scenes as (
  insert into scenes(
    id,
    story_id,
    scene_number,
    duration_estimate_secs,
    visual_description,
    dialogue_or_narration,
    created_at,
    updated_at
  )
  select
    gen_random_uuid(),
    (select id from ins_story),
    t.scene_number,
    t.duration_estimate_secs,
    t.visual_description,
    t.dialogue_or_narration,
    now(),
    now()
  from unnest($4::int[], $5::int[], $6::text[], $7::text[])
    as t(scene_number, duration_estimate_secs, visual_description, dialogue_or_narration)
  returning id
)
select
  s.id::text,
  s.created_at,
  s.updated_at,
  (select count(*) from ins_scenes)::int
from ins_story s;
`

const QListScenesByStory = `--sql d84335b0-464b-4390-b797-cecd1b8eb6f6
select
  id::text,
  story_id::text,
  scene_number,
  duration_estimate_secs,
  visual_description,
  dialogue_or_narration,
  created_at,
  updated_at
from scenes
where story_id = $1::uuid
order by scene_number asc;
`
