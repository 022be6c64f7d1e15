// Package dbsource converts a database snapshot of course enrollment
// into logs of validation events. Each enrollment row becomes one
// validated event timestamped at the dump start time, which is when the
// row's state was actually observed. The resulting per-course log files
// feed the same reconciliation pipeline as real tracking logs.
package dbsource
