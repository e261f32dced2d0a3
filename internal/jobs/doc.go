// Package jobs loads job-listing datasets from CSV files.
//
// A dataset file is comma-separated text whose first row names the columns.
// Every following row becomes a [Record], a map from column name to the raw
// cell text. Nothing is converted at load time: salary columns stay strings
// and are parsed by the query layer where they are used.
//
// # Caching
//
// [Loader] memoizes parsed datasets by path. The first [Loader.Load] for a
// path reads the file; every later call returns the same *[Dataset]. The cache
// lives as long as the Loader and is never refreshed on its own:
//
//	loader := jobs.NewLoader()
//	ds, err := loader.Load(ctx, "data/jobs.csv")
//	...
//	loader.Invalidate("data/jobs.csv") // next Load re-reads the file
//
// # Errors
//
// Failures wrap one of the package sentinels ([ErrFileNotFound],
// [ErrEmptyFile], [ErrInvalidInput], [ErrEmptyResult]); use errors.Is to test
// for them and [MapError] to turn them into coded user messages.
package jobs
