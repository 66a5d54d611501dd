package backend

import (
	"time"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// Wire DTOs for the backend order store. Field names follow the observed
// HTTP contract (Spanish keys, Sequelize-style capitalized associations);
// they are translated to domain types at this boundary and never leak out.

type productDTO struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Precio      int64  `json:"precio"`
	Disponible  bool   `json:"disponible"`
	ImagenURL   string `json:"imagen_url"`
}

func (p productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:          p.ID,
		Name:        p.Nombre,
		Description: p.Descripcion,
		Price:       p.Precio,
		Available:   p.Disponible,
		ImageURL:    p.ImagenURL,
	}
}

type orderItemDTO struct {
	ProductoID     int64  `json:"producto_id"`
	Cantidad       int    `json:"cantidad"`
	PrecioUnitario int64  `json:"precio_unitario"`
	Notas          string `json:"notas_personalizadas"`
	Product        struct {
		ID     int64  `json:"id"`
		Nombre string `json:"nombre"`
	} `json:"Product"`
}

type orderDTO struct {
	ID         int64          `json:"id"`
	Estado     string         `json:"estado"`
	TotalPagar int64          `json:"total_pagar"`
	Items      []orderItemDTO `json:"items"`
	User       struct {
		Nombre string `json:"nombre"`
	} `json:"User"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o orderDTO) toDomain() domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		productID := it.ProductoID
		if productID == 0 {
			productID = it.Product.ID
		}
		items[i] = domain.OrderItem{
			ProductID: productID,
			Name:      it.Product.Nombre,
			Quantity:  it.Cantidad,
			UnitPrice: it.PrecioUnitario,
			Notes:     it.Notas,
		}
	}
	return domain.Order{
		ID:           o.ID,
		CustomerName: o.User.Nombre,
		Status:       o.Estado,
		Items:        items,
		Total:        o.TotalPagar,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

type createIntentRequest struct {
	Monto       int64  `json:"monto"`
	Email       string `json:"email"`
	Descripcion string `json:"descripcion"`
	MetodoPago  string `json:"metodo_pago"`
}

// createIntentResponse tolerates both the bare and the {"data": ...}
// wrapped form the backend has been observed to return.
type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	Data         *struct {
		ClientSecret string `json:"clientSecret"`
	} `json:"data"`
}

func (r createIntentResponse) secret() string {
	if r.Data != nil && r.Data.ClientSecret != "" {
		return r.Data.ClientSecret
	}
	return r.ClientSecret
}

type confirmProductDTO struct {
	ProductoID     int64  `json:"producto_id"`
	Cantidad       int    `json:"cantidad"`
	PrecioUnitario int64  `json:"precio_unitario"`
	Notas          string `json:"notas_personalizadas"`
}

type confirmRequest struct {
	PaymentIntentID string              `json:"payment_intent_id"`
	PedidoID        *int64              `json:"pedido_id"`
	MetodoPago      string              `json:"metodo_pago"`
	Productos       []confirmProductDTO `json:"productos"`
}

type confirmResponse struct {
	Pedido        orderDTO `json:"pedido"`
	PuntosGanados int      `json:"puntos_ganados"`
}

type paymentStatusResponse struct {
	Status string `json:"status"`
}

type updateStatusRequest struct {
	Estado string `json:"estado"`
}

type adjustLoyaltyRequest struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
}

type adjustLoyaltyResponse struct {
	PuntosActuales int `json:"puntos_actuales"`
}
