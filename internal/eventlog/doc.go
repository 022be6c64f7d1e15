// Package eventlog handles the input side of the validation pipeline:
// parsing tracking-log lines into normalized enrollment events, schema
// validation of full event documents, date-interval handling, and
// selection of log files by pattern and embedded date.
//
// Parsing drops bad input at the smallest possible granularity: a
// malformed line costs exactly that line, never the file or the run.
package eventlog
