package router

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/application"
	"github.com/oksasatya/go-ddd-blog/internal/container"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-blog/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-blog/internal/infrastructure/redisstore"
	handlers "github.com/oksasatya/go-ddd-blog/internal/interface/http"
	"github.com/oksasatya/go-ddd-blog/internal/router/modules"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
	"github.com/oksasatya/go-ddd-blog/pkg/validation"
)

// Deps is everything the HTTP modules are built from.
type Deps struct {
	Users      repo.UserRepository
	Categories repo.CategoryRepository
	Posts      repo.PostRepository
	Index      repo.PostIndex // nil disables search
	Blacklist  repo.TokenBlacklist
	Avatars    repo.AvatarStorage
	Notifier   application.Notifier // nil drops account events
	JWT        *helpers.JWTManager
	Redis      *redis.Client
	Policy     validation.PasswordPolicy
	Logger     *logrus.Logger
	Checks     []handlers.Check
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	pool := container.GetPGPool()
	rdb := container.GetRedis()

	d := Deps{
		Users:      pginfra.NewUserRepository(pool),
		Categories: pginfra.NewCategoryRepository(pool),
		Posts:      pginfra.NewPostRepository(pool),
		Index:      container.GetPostIndex(),
		Blacklist:  redisstore.NewTokenBlacklist(rdb),
		Avatars:    container.GetAvatars(),
		JWT:        container.GetJWT(),
		Redis:      rdb,
		Policy:     validation.DefaultPasswordPolicy(),
		Logger:     container.GetLogger(),
	}
	d.Policy.MinEntropy = cfg.PasswordMinEntropy

	if pub := container.GetRabbitPub(); pub != nil {
		d.Notifier = application.NewQueueNotifier(pub, cfg.CompanyName, cfg.SupportURL, cfg.LoginURL)
	}

	d.Checks = []handlers.Check{
		{Name: "postgres", Fn: func(ctx context.Context) error { return pginfra.Ping(ctx, pool) }},
		{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if d.Index != nil {
		if p, ok := d.Index.(interface{ Ping(context.Context) error }); ok {
			d.Checks = append(d.Checks, handlers.Check{Name: "elasticsearch", Fn: p.Ping})
		}
	}
	return d
}

// Mount builds services and handlers from d and adds their modules to r.
func Mount(r *Registry, d Deps) {
	tokens := application.NewTokenService(d.JWT, d.Blacklist, d.Users, d.Logger)
	accounts := application.NewAccountService(d.Users, tokens, d.Avatars, d.Notifier, d.Policy, d.Logger)
	content := application.NewContentService(d.Categories, d.Posts, d.Index, d.Logger)

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(d.Checks...), d.Redis))
	r.Add(modules.NewAccountModule(handlers.NewAccountHandler(accounts, d.Logger), tokens, d.Redis))
	r.Add(modules.NewContentModule(handlers.NewContentHandler(content, d.Logger), tokens, d.Redis))
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	Mount(r, buildDeps())
}
