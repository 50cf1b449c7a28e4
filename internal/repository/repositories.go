package repository

import (
	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/models"
)

type (
	ProductRepository  = DocumentRepository[models.Product]
	OrderRepository    = DocumentRepository[models.Order]
	RequestRepository  = DocumentRepository[models.Request]
	UserRepository     = DocumentRepository[models.User]
	CategoryRepository = DocumentRepository[models.Category]
)

func NewProductRepository(store datastore.Store) *ProductRepository {
	return newDocumentRepository(store, datastore.Products, func(p *models.Product) string { return p.ID })
}

func NewOrderRepository(store datastore.Store) *OrderRepository {
	return newDocumentRepository(store, datastore.Orders, func(o *models.Order) string { return o.OrderID })
}

func NewRequestRepository(store datastore.Store) *RequestRepository {
	return newDocumentRepository(store, datastore.Requests, func(r *models.Request) string { return r.RequestID })
}

func NewUserRepository(store datastore.Store) *UserRepository {
	return newDocumentRepository(store, datastore.Users, func(u *models.User) string { return u.Username })
}

func NewCategoryRepository(store datastore.Store) *CategoryRepository {
	return newDocumentRepository(store, datastore.Categories, func(c *models.Category) string { return c.ID })
}
