// Package jobs defines the lesson API's job wire format and the handlers that
// execute each job kind.
//
// A Job arrives either from the lesson web API (APIClient polls
// GET /api/jobs/poll and reports back with POST to the same path) or from the
// local SQLite queue (QueueSource). Both implement Source, so the worker loop
// does not care where work comes from. Handlers validate the job, run the
// lesson pipeline and return a Result whose sentences, updated sentences and
// free-form result map onto the completion report.
package jobs
