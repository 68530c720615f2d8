// Package loadersdemo contains concrete backend loaders: Handler
// implementations that resolve loader.Future groups against real data
// stores. These are the "external collaborators" loader's core
// deliberately leaves out of scope. Application code wires them into
// a loader.Queue the same way it would wire any other handler.
//
// Each loader here follows the same shape: a future type embedding
// loader.Base with a semantic InstanceKey (so repeated loads of the
// same row coalesce), an injector constructor that calls loader.Inject
// and returns its result, and a Handler whose SatisfyMulti issues one
// batched round trip per group.
package loadersdemo
