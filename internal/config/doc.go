// Package config loads and validates podforge configuration.
//
// Configuration is read from a TOML file (default
// ~/.config/podforge/config.toml), merged over built-in defaults, then
// adjusted from the environment. Environment variables always win over the
// file so deployments can inject credentials without editing config:
// PODCAST_ENGINE_URL, PODCAST_ENGINE_API_KEY, S3_BUCKET_NAME, S3_REGION,
// S3_ENDPOINT_URL, PODFORGE_API_TOKEN and NTFY_TOPIC are recognized. Object
// store credentials are deliberately absent from the file format and are read
// from AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY at the point of use.
package config
