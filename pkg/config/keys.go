package config

// Configuration keys. Each key is also read from the environment variable
// with the upper-cased name.
const (
	KeyProvingMode        = "bonsai_proving"
	KeyBonsaiAPIURL       = "bonsai_api_url"
	KeyBonsaiAPIKey       = "bonsai_api_key"
	KeyBonsaiEndpoint     = "bonsai_endpoint"
	KeyNodeURL            = "eth_node_url"
	KeyChainID            = "eth_chain_id"
	KeyPrivateKey         = "private_key"
	KeyProxyAddress       = "proxy_address"
	KeyStartBlock         = "start_block"
	KeyImagesDir          = "images_dir"
	KeyPollInterval       = "poll_interval"
	KeyDownloadRetries    = "download_retries"
	KeyMemoryLimit        = "memory_limit"
	KeyResubscribeBackoff = "resubscribe_backoff"
	KeyStorePath          = "store_path"
	KeyAPIPort            = "api_port"
	KeyLogLevel           = "log_level"
	KeyLogType            = "log_type"
)
