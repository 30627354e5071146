// Package redis 提供 storefront 共用的 Redis 连接，
// 目录缓存与会话存储都从这里获取客户端。
package redis
