package inits

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"gramflow/app/server/config"
)

func Config() (cfg *config.Config, err error) {
	// 有 .env 就先加载，没有不算错误
	_ = godotenv.Load()

	cfg = &config.Config{}

	// 手动配置映射，如果这里有什么自动映射工具就好了， viper 好像处理这种基于环境变量的配置也不是很方便
	{
		mode, exist := os.LookupEnv("MODE")
		cfg.System.IsProd = exist && strings.HasPrefix(strings.ToLower(mode), "p")
	}

	if listen, exist := os.LookupEnv("LISTEN"); !exist {
		cfg.System.Listen = ":1323" // 默认监听地址
	} else {
		cfg.System.Listen = listen
	}

	if origin, exist := os.LookupEnv("PUBLIC_ORIGIN"); !exist {
		cfg.System.PublicOrigin = "http://localhost:1323"
	} else {
		cfg.System.PublicOrigin = strings.TrimSuffix(origin, "/")
	}

	if dbconn, exist := os.LookupEnv("DB_CONN"); !exist {
		return nil, fmt.Errorf("DB_CONN environment variable not set")
	} else {
		cfg.System.DBConnectionString = dbconn
	}

	// Redis 是可选的，不配置就不启用账户缓存
	if redisconn, exist := os.LookupEnv("REDIS_CONN"); exist {
		cfg.System.RedisConnectionString = redisconn
	}

	if sigsk, exist := os.LookupEnv("SIGNATURE_SECRET_KEY"); !exist {
		return nil, fmt.Errorf("SIGNATURE_SECRET_KEY environment variable not set")
	} else {
		cfg.Security.SignatureSecretKey = sigsk
	}

	// 管理员白名单，逗号分隔
	if admins, exist := os.LookupEnv("ADMIN_EMAILS"); exist {
		for _, email := range strings.Split(admins, ",") {
			if email = strings.TrimSpace(email); email != "" {
				cfg.Security.AdminEmails = append(cfg.Security.AdminEmails, email)
			}
		}
	}

	cfg.OAuth.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.OAuth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")

	return cfg, nil
}
