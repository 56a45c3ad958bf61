package cnst

const (
	// GloamdYaml is the default configuration file name
	GloamdYaml = "gloamd.yaml"
)

const (
	// RedisClusterTypeSentinel represents a sentinel-managed redis deployment
	RedisClusterTypeSentinel = "sentinel"
	// RedisClusterTypeCluster represents a redis cluster deployment
	RedisClusterTypeCluster = "cluster"
	// RedisClusterTypeSingle represents a single-node redis deployment
	RedisClusterTypeSingle = "single"
)
