// Package naming holds the reserved identifiers used to tag and partition
// multi-dataset query results.
package naming

import "fmt"

// SourceColumn tags each row of a combined statement with the dataset it
// belongs to.
const SourceColumn = "__ggsql_source__"

// BaseDataset is the name of the untouched relational result.
const BaseDataset = "__ggsql_base__"

// LayerDataset returns the dataset name for the stat fragment of layer i.
func LayerDataset(i int) string {
	return fmt.Sprintf("__ggsql_layer_%d__", i)
}
