// Package config provides centralized configuration management for the
// campaign cleaner. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CAMPAIGN_<SECTION>_<FIELD>:
//
//	CAMPAIGN_SERVER_PORT=8080
//	CAMPAIGN_BATCH_WORKERS=4
//	CAMPAIGN_STORAGE_BACKEND=s3
//	CAMPAIGN_STORAGE_S3_BUCKET=cleaned-files
//	CAMPAIGN_SUMMARY_BACKEND=redis
//	CAMPAIGN_SUMMARY_REDIS_ADDR=redis:6379
//
// The configuration file is taken from CAMPAIGN_CONFIG_FILE, or from
// config.yaml / configs/config.yaml when present.
//
// # Validation
//
// Field constraints are declared with validator tags. Cross-field rules, such
// as S3 storage requiring a bucket and region, are checked in Validate.
package config
