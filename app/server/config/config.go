package config

type Config struct {
	System struct {
		IsProd                bool   // 是否为生产环境
		Listen                string // 监听地址
		PublicOrigin          string // 对外访问地址，用于拼接邮件链接与 OAuth 回调地址
		DBConnectionString    string // Postgres 数据库的连接字符串，或 sqlite://<path> 形式的本地库
		RedisConnectionString string // Redis 数据库的连接字符串，留空则不启用缓存
	}
	Security struct {
		SignatureSecretKey string   // 签名密钥，用于产生会话令牌签名，更新会导致旧有会话失效
		AdminEmails        []string // 管理员邮箱白名单，命中的账户在登录或刷新会话时强制提升为 ADMIN
	}
	OAuth struct {
		GoogleClientID     string // Google OAuth 客户端 ID
		GoogleClientSecret string // Google OAuth 客户端密钥
	}
}
