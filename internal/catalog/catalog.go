package catalog

import (
	"context"

	xerrors "storefront/internal/errors"
)

// Rating 是远端服务返回的评分聚合。
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product 与目录服务的 JSON 结构一致。
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// Name 是注册用户的姓名。
type Name struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// NewUser 是提交给目录服务 /users 接口的注册信息。
type NewUser struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     Name   `json:"name"`
	Phone    string `json:"phone"`
}

// Client 定义了访问目录服务的统一接口。
type Client interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateUser(ctx context.Context, user NewUser) (int, error)
}

const (
	CodeProductNotFound    xerrors.Code = "PRODUCT_NOT_FOUND"
	CodeCatalogUnavailable xerrors.Code = "CATALOG_UNAVAILABLE"
)

var (
	// ErrProductNotFound 表示目录服务中不存在该商品。
	ErrProductNotFound = xerrors.New(CodeProductNotFound, "product not found")
)

func init() {
	xerrors.Register(CodeProductNotFound, xerrors.Attributes{
		Message:  "product not found",
		Severity: xerrors.SeverityInfo,
		Status:   404,
	})
	xerrors.Register(CodeCatalogUnavailable, xerrors.Attributes{
		Message:  "catalog service unavailable",
		Severity: xerrors.SeverityWarning,
		Status:   502,
	})
}
