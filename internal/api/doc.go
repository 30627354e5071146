// Package api 通过 chi 路由暴露 storefront 的 JSON 接口：
// 注册、登录、登出、当前用户、商品网格、商品详情与侧边栏聚合。
// 除注册与登录外的接口都需要携带 Bearer 令牌。
package api
