// Package launchbase is the persistence layer for the LaunchBase platform:
// startup projects with their roles, team members and applications, and the
// education catalogue of schools, instructors, courses, modules and lessons.
//
// # Overview
//
// Every caller works against the Storage interface. Two implementations
// satisfy it with the same observable behaviour:
//
//   - MemoryBackend keeps everything in process and starts from a small demo
//     dataset, so the platform runs with no infrastructure at all.
//   - DynamoBackend stores one DynamoDB table per entity family, answers
//     filtered lists from global secondary indexes and creates its own tables
//     the first time it is used.
//
// A Selector decides once per process which of the two to use:
//
//	cfg, err := launchbase.LoadConfig()
//	if err != nil {
//		return err
//	}
//	logger, _ := launchbase.NewLogger(cfg.Log)
//	selector := launchbase.NewSelector(cfg, launchbase.WithSelectorLogger(logger))
//	storage := selector.Resolve(ctx)
//	defer selector.Close()
//
//	course, err := storage.GetCourse(ctx, 1)
//	if launchbase.IsNotFound(err) {
//		// ...
//	}
//
// With no AWS credentials in the environment the selector returns the memory
// backend. With credentials it probes DynamoDB and falls back to memory if the
// probe fails.
//
// # Durable backend
//
// Tables are named <prefix><family>, for example launchbase_courses. Record
// ids come from an atomic counter, either a "counters" table in DynamoDB or
// Redis INCR when LAUNCHBASE_ID_SOURCE=redis. Boolean "featured" flags are
// mirrored into a string attribute because DynamoDB cannot index booleans:
//
//	featured=true   ->  featuredIndex="true"
//
// A list with filters queries the first index that can answer one of them and
// applies the rest as a filter expression. If the index query fails the same
// filter runs as a full scan. Use a QueryProfiler to see which path served
// each list:
//
//	profiler := launchbase.NewQueryProfiler()
//	backend := launchbase.NewDynamoBackend(client, launchbase.WithQueryProfiler(profiler))
//	...
//	profiler.WriteSummary(os.Stdout)
//
// # Snapshots
//
// TakeSnapshot copies every family out of any Storage. A SnapshotStore writes
// snapshots as JSON to a local directory, S3 (or MinIO) or Google Cloud
// Storage, optionally sealed with AES-256-GCM. Setting
// LAUNCHBASE_SEED_SNAPSHOT boots the memory backend from the newest snapshot
// instead of the demo dataset.
//
// # Observability
//
// Backends log through the Logger interface (ZapLogger in production) and
// count operations through Metrics (PrometheusMetrics in production).
package launchbase
