package main

import (
	"log/slog"

	accesslogstore "trustid/internal/accesslog/store"
	alertstore "trustid/internal/alert/store"
	authservice "trustid/internal/auth/service"
	otpstore "trustid/internal/auth/store/otp"
	sessionstore "trustid/internal/auth/store/session"
	userstore "trustid/internal/auth/store/user"
	consentservice "trustid/internal/consent/service"
	consentstore "trustid/internal/consent/store"
	directorystore "trustid/internal/directory/store"
	entityservice "trustid/internal/entity/service"
	entitystore "trustid/internal/entity/store"
	onboardingstore "trustid/internal/onboarding/store"
	outboxstore "trustid/internal/outbox/store"
	"trustid/internal/platform/database"
	redisclient "trustid/internal/platform/redis"
)

// accountStore is what both the auth service and owner-key lookups need.
type accountStore interface {
	authservice.UserStore
	entityservice.OwnerResolver
}

type storage struct {
	ledger   consentservice.Stores
	tx       consentservice.LedgerTx
	users    accountStore
	sessions authservice.SessionStore
	otps     authservice.OTPStore
	requests onboardingstore.Store
	services directorystore.Store
	durable  bool
}

// newStorage picks PostgreSQL for durable data when pool is set and Redis for
// sessions and OTPs when rdb is set. Anything unconfigured lives in memory.
func newStorage(pool *database.Pool, rdb *redisclient.Client, log *slog.Logger) storage {
	var st storage

	if pool != nil {
		db := pool.DB()
		st.ledger = consentservice.PostgresStores(db)
		st.tx = consentservice.NewPostgresTx(db)
		st.users = userstore.NewPostgres(db)
		st.requests = onboardingstore.NewPostgres(db)
		st.services = directorystore.NewPostgres(db)
		st.durable = true
		log.Info("using postgres stores")
	} else {
		st.ledger = consentservice.Stores{
			Consents:  consentstore.New(),
			AccessLog: accesslogstore.New(),
			Alerts:    alertstore.New(),
			Outbox:    outboxstore.NewInMemory(),
			Entities:  entitystore.New(),
		}
		st.tx = consentservice.NewInMemoryTx(st.ledger)
		st.users = userstore.New()
		st.requests = onboardingstore.New()
		st.services = directorystore.New()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if rdb != nil {
		st.sessions = sessionstore.NewRedis(rdb.Client)
		st.otps = otpstore.NewRedis(rdb.Client)
		log.Info("using redis session and otp stores")
	} else {
		st.sessions = sessionstore.New()
		st.otps = otpstore.New()
	}
	return st
}
