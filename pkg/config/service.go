package config

// PublicConfig is the part of the config a drop client may see.
type PublicConfig struct {
	BatchSize              int    `json:"batch_size"`
	MaterializeConcurrency int    `json:"materialize_concurrency"`
	S3Enabled              bool   `json:"s3_enabled"`
	S3Bucket               string `json:"s3_bucket,omitempty"`
	S3Prefix               string `json:"s3_prefix,omitempty"`
}

type Service struct {
	config *Config
}

func NewService(cfg *Config) *Service {
	return &Service{config: cfg}
}

func (s *Service) RetrievePublicConfig() *PublicConfig {
	pc := &PublicConfig{
		BatchSize:              s.config.BatchSize,
		MaterializeConcurrency: s.config.MaterializeConcurrency,
		S3Enabled:              s.config.S3Enabled(),
	}
	if pc.S3Enabled {
		pc.S3Bucket = s.config.S3Bucket
		pc.S3Prefix = s.config.S3Prefix
	}
	return pc
}
