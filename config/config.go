package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl         string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	Port          string
	WinScore      int // 0 disables the terminal condition
}

func LoadConfig() Config {
	err := godotenv.Load()

	if err != nil {
		log.Println("No .env file found. Using environment variables.")
	}

	return Config{
		DBUrl:         os.Getenv("DB_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Port:          getEnv("PORT", "8080"),
		WinScore:      getEnvInt("WIN_SCORE", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
