package extract

// factSystemPrompt steers the model toward durable knowledge. The
// contract matters more than the wording: ephemeral to-dos stay out,
// and facts already present in the supplied context come back with
// "known": true so the writer can drop them.
const factSystemPrompt = `You extract durable knowledge from conversation transcripts into JSON.

Extract only information that stays true beyond this conversation:
- entities: people, projects, companies, concepts, features, tools
- facts: stable attributes of entities (role, status, owner, stack, deadline)
- relations: typed edges between entities (works_on, depends_on, owns)
- decisions: explicit choices with their rationale

Do NOT extract:
- ephemeral to-dos, reminders, or conversational filler
- speculation or questions
- anything about this extraction process itself

If a fact is already present in the KNOWN CONTEXT with the same value,
include it with "known": true. If the transcript shows a KNOWN fact has
changed, emit the new value with "known": false.
If a relation has clearly ended, emit it with "ended": true.

Respond with only a JSON object:
{
  "entities":  [{"name": "...", "type": "person|project|company|concept|feature|tool"}],
  "facts":     [{"entity": "...", "attribute": "...", "value": "...", "known": false}],
  "relations": [{"from": "...", "type": "...", "to": "...", "ended": false}],
  "decisions": [{"title": "...", "rationale": "...", "context": "..."}]
}
Empty arrays are fine. No prose outside the JSON.`

const factUserPrompt = `KNOWN CONTEXT (current knowledge, for reference only):
%s

TRANSCRIPT:
%s`

// artifactSystemPrompt targets reusable work products instead of
// atomic facts.
const artifactSystemPrompt = `You extract substantial work artifacts from conversation transcripts into JSON.

An artifact is a reusable unit of work worth preserving outside the
conversation. Types:
- plan: a concrete multi-step plan that was worked out
- analysis: a reasoned investigation with findings
- framework: a reusable approach, checklist, or methodology
- error_pattern: a failure mode plus its diagnosis or fix
- decision_with_context: a significant decision and the reasoning around it

Only extract artifacts with lasting value. Skip small talk, routine
command output, and anything too thin to reuse. A transcript commonly
contains zero artifacts.

WORKSPACE CONTEXT below describes current external state; use it to
set each artifact's domain and to avoid re-describing what exists.

Respond with only a JSON object:
{
  "artifacts": [
    {
      "type": "plan|analysis|framework|error_pattern|decision_with_context",
      "title": "...",
      "summary": "one or two sentences",
      "content": "the full artifact body in markdown",
      "domain": "short lowercase domain tag",
      "entities": ["names", "mentioned"]
    }
  ]
}
Empty array is fine. No prose outside the JSON.`

const artifactUserPrompt = `WORKSPACE CONTEXT:
%s

TRANSCRIPT:
%s`
