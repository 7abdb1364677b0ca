package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"school_platform/school/auth"
	"school_platform/school/email"
	"school_platform/school/push"
	"school_platform/school/schema"
	"school_platform/school/services"
	"school_platform/utils"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type schoolPlatformEnv struct {
	PublicHostname string
	LogDir         string
	JwtSecret      string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	FirebaseCredentialsFile string

	SendgridApiKey    string
	SendgridFromName  string
	SendgridFromEmail string

	DatabaseUri string

	DisableTokenSweep    bool
	TokenSweepIntervalHr int
}

func optionalEnv(key string) string {
	return os.Getenv(key)
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

/**
 * ============================================================================
 * ==== All variables that are used by the platform must be loaded here.   ====
 * ==== This is to make the data flow clear so that a user can see what    ====
 * ==== variables are exposed, and how the values are propagated through   ====
 * ==== the system.                                                        ====
 * ============================================================================
 */
func loadEnv() schoolPlatformEnv {
	missingEnvs := []string{}

	requiredEnv := func(key string) string {
		env := os.Getenv(key)
		if env == "" {
			missingEnvs = append(missingEnvs, key)
			slog.Error("missing required env variable", "key", key)
		}
		return env
	}

	env := schoolPlatformEnv{
		PublicHostname: requiredEnv("PUBLIC_HOSTNAME"),
		LogDir:         requiredEnv("LOG_DIR"),
		JwtSecret:      requiredEnv("JWT_SECRET"),

		AdminName:     requiredEnv("ADMIN_NAME"),
		AdminEmail:    requiredEnv("ADMIN_MAIL"),
		AdminPassword: requiredEnv("ADMIN_PASSWORD"),

		FirebaseCredentialsFile: optionalEnv("FIREBASE_CREDENTIALS_FILE"),

		SendgridApiKey:    optionalEnv("SENDGRID_API_KEY"),
		SendgridFromName:  utils.OptionalEnv("SENDGRID_FROM_NAME"),
		SendgridFromEmail: utils.OptionalEnv("SENDGRID_FROM_EMAIL"),

		DatabaseUri: requiredEnv("DATABASE_URI"),

		DisableTokenSweep:    utils.BoolEnvVar("DISABLE_TOKEN_SWEEP"),
		TokenSweepIntervalHr: utils.IntEnvVar("TOKEN_SWEEP_INTERVAL_HOURS", 6),
	}

	if len(missingEnvs) > 0 {
		log.Fatalf("The following required env vars are missing: %s", strings.Join(missingEnvs, ", "))
	}

	if env.SendgridApiKey != "" && env.SendgridFromEmail == "" {
		log.Fatal("SENDGRID_FROM_EMAIL must be specified when SENDGRID_API_KEY is set")
	}

	return env
}

func (env *schoolPlatformEnv) postgresDsn() string {
	parts, err := url.Parse(env.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initLogging(logFile *os.File) {
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Child{}, &schema.Homework{}, &schema.Submission{},
		&schema.HomeworkCompletion{}, &schema.Attendance{}, &schema.Message{},
		&schema.Notification{}, &schema.Event{}, &schema.DeviceToken{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func initPushClient(env *schoolPlatformEnv) push.Client {
	if env.FirebaseCredentialsFile == "" {
		slog.Info("FIREBASE_CREDENTIALS_FILE not set, push notifications are disabled")
		return push.NoopClient{}
	}

	client, err := push.NewFcmClient(context.Background(), env.FirebaseCredentialsFile)
	if err != nil {
		log.Fatalf("error creating fcm client: %v", err)
	}
	return client
}

func initEmailService(env *schoolPlatformEnv) email.Service {
	from := mail.Address{Name: env.SendgridFromName, Address: env.SendgridFromEmail}

	if env.SendgridApiKey == "" {
		slog.Info("SENDGRID_API_KEY not set, emails will be logged instead of sent")
		return &email.ConsoleService{From: from}
	}

	return &email.SendgridService{Key: env.SendgridApiKey, From: from}
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}
	env := loadEnv()

	err := os.MkdirAll(env.LogDir, 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(env.LogDir, "school_platform.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditLog, err := os.OpenFile(filepath.Join(env.LogDir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditLog.Close()

	initLogging(logFile)

	db := initDb(env.postgresDsn())

	pushClient := initPushClient(&env)
	emailService := initEmailService(&env)

	identityProvider, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(auditLog),
		auth.BasicProviderArgs{
			Secret:        []byte(env.JwtSecret),
			AdminName:     env.AdminName,
			AdminEmail:    env.AdminEmail,
			AdminPassword: env.AdminPassword,
		},
	)
	if err != nil {
		log.Fatalf("error creating basic identity provider: %v", err)
	}

	platform := services.NewSchoolPlatform(db, pushClient, emailService, identityProvider)

	if !env.DisableTokenSweep {
		go platform.TokenSweep(time.Duration(env.TokenSweepIntervalHr) * time.Hour)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{env.PublicHostname},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(100, 15*time.Minute))
	r.Mount("/api/v1", platform.Routes())

	slog.Info("starting server", "port", *port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
	platform.StopTokenSweep()
}
