package main

import "time"

type Config struct {
	PersistBufferSize         int           `env:"PERSIST_BUFFER_SIZE,required=true"`
	NumberOfPersistWorkers    int           `env:"NUMBER_OF_PERSIST_WORKERS,required=true"`
	SendBufferSize            int           `env:"SEND_BUFFER_SIZE,required=true"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`
	LimitMessages             *int          `env:"LIMIT_MESSAGES"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	ShutdownTimeout           time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath             string        `env:"BLUGE_FILEPATH,required=true"`
	BlobDir                   string        `env:"BLOB_DIR,required=true"`
	BlobBaseURL               string        `env:"BLOB_BASE_URL,default=/attachments"`
	JWTSecret                 string        `env:"JWT_SECRET,required=true"`
	AdminKey                  string        `env:"ADMIN_KEY"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}
