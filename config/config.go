package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port        string
	BindAddress string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisHost   string
	RedisPort   string
	JWTSecret   string

	// Event channel and game document lifetime.
	EventChannel      string
	GameTTL           time.Duration
	HeartbeatInterval time.Duration
	SweepInterval     time.Duration

	// Task lifecycle delays (seconds); question durations come from
	// the quiz itself.
	LobbyCountdownSec      int
	LobbyDurationSec       int
	QuestionIntroSec       int
	ResultDurationSec      int
	LeaderboardDurationSec int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		BindAddress: getEnv("BIND_ADDRESS", "localhost"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "quizlive"),
		DBPassword:  getEnv("DB_PASSWORD", "quizlive123"),
		DBName:      getEnv("DB_NAME", "quizlive"),
		RedisHost:   getEnv("REDIS_HOST", "localhost"),
		RedisPort:   getEnv("REDIS_PORT", "6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		EventChannel:      getEnv("EVENT_CHANNEL", "quizlive:events"),
		GameTTL:           time.Duration(getEnvInt("GAME_TTL_MINUTES", 120)) * time.Minute,
		HeartbeatInterval: time.Duration(getEnvInt("HEARTBEAT_SECONDS", 30)) * time.Second,
		SweepInterval:     time.Duration(getEnvInt("SWEEP_MINUTES", 5)) * time.Minute,

		LobbyCountdownSec:      getEnvInt("LOBBY_COUNTDOWN_SECONDS", 3),
		LobbyDurationSec:       getEnvInt("LOBBY_DURATION_SECONDS", 10),
		QuestionIntroSec:       getEnvInt("QUESTION_INTRO_SECONDS", 3),
		ResultDurationSec:      getEnvInt("RESULT_DURATION_SECONDS", 8),
		LeaderboardDurationSec: getEnvInt("LEADERBOARD_DURATION_SECONDS", 8),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	return client
}
