package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/config"
	"github.com/oksasatya/go-ddd-blog/internal/domain/repository"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router auto-wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	jwtManager *helpers.JWTManager

	avatars   repository.AvatarStorage
	rabbitPub *helpers.RabbitPublisher
	postIndex repository.PostIndex
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetAvatars(s repository.AvatarStorage)   { avatars = s }
func GetAvatars() repository.AvatarStorage    { return avatars }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }

// SetPostIndex stores the search index; nil disables search and indexing.
func SetPostIndex(i repository.PostIndex) { postIndex = i }
func GetPostIndex() repository.PostIndex  { return postIndex }
