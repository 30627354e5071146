// Package account 管理本地账号：注册表单校验、向目录服务登记、
// 本地持久化以及基于明文凭证的登录匹配。
//
// 账号记录保存在 Store 中。FileStore 对应浏览器中的 "users" 本地存储，
// 每次写入都整体重写文档，后写入者覆盖先写入者。
package account
