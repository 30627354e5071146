// Package mysql 提供基于 MySQL 的账号存储，包含连接池配置与嵌入式迁移。
package mysql
