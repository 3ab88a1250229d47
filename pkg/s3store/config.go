package s3store

type Config struct {
	Bucket         string `env:"S3_BUCKET,required"`                     // Bucket holding snapshot objects.
	Region         string `env:"S3_REGION" envDefault:"us-east-1"`       // Region of the bucket.
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`                       // AccessKeyID for static credentials. Falls back to the default chain when empty.
	SecretKey      string `env:"S3_SECRET_KEY"`                          // SecretKey for static credentials.
	Endpoint       string `env:"S3_ENDPOINT"`                            // Endpoint for S3-compatible services such as MinIO.
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"` // ForcePathStyle is required by most S3-compatible services.
	Prefix         string `env:"S3_PREFIX" envDefault:"snapshots/"`      // Prefix prepended to every object key.
}
