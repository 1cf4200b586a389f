// Package output renders devmesh-cli results as JSON, YAML or a table.
//
// Data trees render as one row per leaf in table mode, keyed by the
// leaf's path relative to the node that was read.
package output
