// Package migration holds the territory migration's stage contexts and the
// phase pipelines that drive them.
//
// # Stage contexts
//
// Each phase owns one stage context (Analysis, Extraction, Transformation,
// Cleanup, Deployment, DataLoad, Sharing). A stage context hides its data
// behind a lifecycle machine: it is populated exactly once per instance via
// Build (compute fresh from the platform), Load (restore from the phase
// report a previous run wrote), or Finalize (adopt data that pipeline steps
// staged ad hoc), and can replay its original Build or Load via Refresh.
//
// # Phases
//
// A Runner builds one pipeline per phase:
//
//	analyze        count source records per entity, write analysis report
//	extract        export records and metadata, gate against analysis
//	transform      rewrite artifacts into the target model
//	clean          deploy destructive changes removing legacy config
//	deploy         deploy transformed metadata to the target
//	load           bulk-load transformed data, gate loaded counts
//	deploysharing  deploy sharing rules once data load passed its gate
//
// Phases communicate only through report files in the working directory, so
// each one can be re-run in isolation.
package migration
