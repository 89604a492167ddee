package graph

// BatchConfig defines UNWIND batch sizes for export
//
// Nodes carry two properties and edges none, so both batch large:
// - Nodes: 1000-5000 per transaction
// - Edges: 5000-10000 per transaction
type BatchConfig struct {
	NodeBatchSize int
	EdgeBatchSize int
}

// DefaultBatchConfig suits datasets up to a few million reviews
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 2000,
		EdgeBatchSize: 5000,
	}
}

// SmallBatchConfig reduces memory pressure on small Neo4j instances
func SmallBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 500,
		EdgeBatchSize: 1000,
	}
}

// LargeBatchConfig maximizes throughput for full Amazon category dumps
func LargeBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 5000,
		EdgeBatchSize: 10000,
	}
}

// BatchConfigForSize picks a preset by name: "small", "large" or anything
// else for the default
func BatchConfigForSize(size string) BatchConfig {
	switch size {
	case "small":
		return SmallBatchConfig()
	case "large":
		return LargeBatchConfig()
	default:
		return DefaultBatchConfig()
	}
}

// withDefaults replaces non-positive sizes with the defaults
func (bc BatchConfig) withDefaults() BatchConfig {
	def := DefaultBatchConfig()
	if bc.NodeBatchSize <= 0 {
		bc.NodeBatchSize = def.NodeBatchSize
	}
	if bc.EdgeBatchSize <= 0 {
		bc.EdgeBatchSize = def.EdgeBatchSize
	}
	return bc
}

// chunkBounds splits n items into [start, end) ranges of at most size
func chunkBounds(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{i, end})
	}
	return out
}
