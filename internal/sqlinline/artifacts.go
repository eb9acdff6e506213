package sqlinline

const QUpsertArtifactLink = `--sql 6f1c2b9e-3d4a-4e8b-9c71-2a5d8e0f4b13
insert into artifact_links (artifact_id, stage, filename)
values ($1::uuid, $2::text, $3::text)
on conflict (artifact_id, stage) do update
  set filename = excluded.filename,
      linked_at = now();
`

const QSelectArtifactLinks = `--sql a2e47c10-95b3-4f6d-8e21-7c0b9d3f5a68
select stage, filename
from artifact_links
where artifact_id = $1::uuid
order by linked_at asc;
`

const QSelectArtifactByFilename = `--sql 3b8d5f72-1c6e-4a90-b4d3-e95a0c7f2d41
select artifact_id::text
from artifact_links
where stage = $1::text and filename = $2::text;
`

const QDeleteArtifactLink = `--sql c95e0a38-7b21-4d6f-a0e4-58f3b1c9d276
delete from artifact_links
where stage = $1::text and filename = $2::text;
`
