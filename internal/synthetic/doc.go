// Package synthetic builds the external representations of synthesized
// enrollment events: either flat tab-separated tuples or fully-formed
// event documents matching the tracking-log format, both keyed by the
// calendar date of the synthesized timestamp for downstream
// partitioning.
package synthetic
