package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/accounts"
	"github.com/clone-prom-team-2025/server/bans"
	mongobanrepo "github.com/clone-prom-team-2025/server/bans/mongorepo"
	fakebanrepo "github.com/clone-prom-team-2025/server/bans/repofakes"
	"github.com/clone-prom-team-2025/server/cache"
	"github.com/clone-prom-team-2025/server/internal/config"
	"github.com/clone-prom-team-2025/server/internal/docstore"
	"github.com/clone-prom-team-2025/server/mail"
	"github.com/clone-prom-team-2025/server/notify"
	"github.com/clone-prom-team-2025/server/recovery"
	"github.com/clone-prom-team-2025/server/server"
	"github.com/clone-prom-team-2025/server/sessions"
	mongosessionrepo "github.com/clone-prom-team-2025/server/sessions/mongorepo"
	fakesessionrepo "github.com/clone-prom-team-2025/server/sessions/repofakes"
	"github.com/clone-prom-team-2025/server/token"
	"github.com/clone-prom-team-2025/server/users"
	mongouserrepo "github.com/clone-prom-team-2025/server/users/mongorepo"
	fakeuserrepo "github.com/clone-prom-team-2025/server/users/repofake"
	"github.com/clone-prom-team-2025/server/verification"
)

type stores struct {
	users    users.UserRepo
	sessions sessions.Repo
	bans     bans.Repo
}

type application struct {
	services    server.Services
	notifier    *notify.Async
	memoryCache *cache.MemoryCache
	closers     []func(context.Context) error
}

func wire(ctx context.Context, cfg config.Config) (*application, error) {
	app := &application{}

	st, err := app.openStores(ctx, cfg)
	if err != nil {
		app.close()
		return nil, err
	}

	var verificationCache cache.Cache
	var publisher notify.ForcedLogoutNotifier = notify.Nop{}
	switch cfg.GetCacheBackend() {
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, errors.Wrap(err, "[wire] redis ping")
		}
		app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })
		verificationCache = cache.NewRedisCache(rdb, cfg.GetCachePrefix())
		publisher = notify.NewRedisPublisher(rdb, cfg.GetLogoutChannel())
	default:
		app.memoryCache = cache.NewMemoryCache()
		verificationCache = app.memoryCache
		log.Warn().Msg("memory cache selected: forced-logout pushes are disabled and codes do not survive a restart")
	}
	app.notifier = notify.NewAsync(publisher, cfg.GetNotifyTimeout())

	var mailer mail.Sender = mail.LogSender{}
	if host := cfg.GetSmtpHost(); host != "" {
		mailer = mail.NewSMTPSender(host, cfg.GetSmtpPort(), cfg.GetSmtpAccount(), cfg.GetSmtpPassword(), cfg.GetMailFrom())
	}

	if err := app.buildServices(cfg, st, verificationCache, mailer); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *application) openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.GetStoreBackend() != config.StoreMongo {
		log.Warn().Msg("memory store selected: data is lost on restart")
		return stores{
			users:    fakeuserrepo.NewFakeUserRepo(),
			sessions: fakesessionrepo.NewFakeSessionRepo(),
			bans:     fakebanrepo.NewFakeBanRepo(),
		}, nil
	}

	db, disconnect, err := docstore.Connect(ctx, cfg.GetMongoURI(), cfg.GetMongoDatabase())
	if err != nil {
		return stores{}, err
	}
	app.closers = append(app.closers, disconnect)

	userRepo := mongouserrepo.New(db)
	sessionRepo := mongosessionrepo.New(db)
	banRepo := mongobanrepo.New(db)
	for _, ensure := range []func(context.Context) error{userRepo.EnsureIndexes, sessionRepo.EnsureIndexes, banRepo.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			return stores{}, err
		}
	}
	return stores{users: userRepo, sessions: sessionRepo, bans: banRepo}, nil
}

func (app *application) buildServices(cfg config.Config, st stores, c cache.Cache, mailer mail.Sender) error {
	manager, err := sessions.NewManager(st.sessions, cfg.GetSessionTTL(),
		sessions.WithNotifier(app.notifier),
		sessions.WithMaxLifetime(cfg.GetSessionMaxLifetime()),
	)
	if err != nil {
		return err
	}
	banService, err := bans.NewService(st.bans, st.users, manager, app.notifier)
	if err != nil {
		return err
	}
	accountService, err := accounts.NewService(accounts.Deps{Users: st.users, Sessions: manager, Bans: banService})
	if err != nil {
		return err
	}
	recoveryService, err := recovery.NewService(c, st.users, mailer,
		recovery.WithCodeTTL(cfg.GetResetCodeTTL()),
		recovery.WithAccessTTL(cfg.GetResetAccessTTL()),
		recovery.WithSessionRevoker(manager),
	)
	if err != nil {
		return err
	}
	verificationService, err := verification.NewService(c, st.users, mailer, accountService,
		verification.WithCodeTTL(cfg.GetVerifyCodeTTL()),
	)
	if err != nil {
		return err
	}
	issuer, err := token.NewIssuer(token.NewHMACSigner(cfg.GetTokenSecret()), tokenLifetime(cfg))
	if err != nil {
		return err
	}

	app.services = server.Services{
		Accounts:     accountService,
		Sessions:     manager,
		Recovery:     recoveryService,
		Verification: verificationService,
		Bans:         banService,
		Tokens:       issuer,
	}
	return nil
}

// tokenLifetime outlives any session a token can name: sliding refreshes re-issue the
// token, and the store decides validity on every request.
func tokenLifetime(cfg config.Config) time.Duration {
	if limit := cfg.GetSessionMaxLifetime(); limit > 0 {
		return limit
	}
	return cfg.GetSessionTTL()
}

// startBackground runs the periodic sweeps until ctx is done.
func (app *application) startBackground(ctx context.Context, cfg config.Config) {
	if app.memoryCache != nil {
		go app.memoryCache.RunCleanup(ctx, time.Minute)
	}
	interval := cfg.GetSessionPurgeInterval()
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := app.services.Sessions.PurgeExpired(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("session purge failed")
					continue
				}
				if n > 0 {
					log.Info().Int64("purged", n).Msg("expired sessions purged")
				}
			}
		}
	}()
}

func (app *application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
