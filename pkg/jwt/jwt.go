package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity datos del actor que viajan en el token.
type Identity struct {
	UserID       string
	Role         string   // "admin" | "manager" | "cashier"
	WarehouseID  string   // asignación primaria (legacy)
	WarehouseIDs []string // asignaciones adicionales
}

// Claims incluye los claims estándar JWT más la identidad del actor.
// Con rol y bodegas en el token la autorización no consulta la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"user_id"`
	Role         string   `json:"role"`
	WarehouseID  string   `json:"warehouse_id,omitempty"`
	WarehouseIDs []string `json:"warehouse_ids,omitempty"`
}

// Identity devuelve los datos del actor contenidos en los claims.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Role:         c.Role,
		WarehouseID:  c.WarehouseID,
		WarehouseIDs: c.WarehouseIDs,
	}
}

// Generate firma un token HS256. La emisión real ocurre en el servicio de autenticación;
// se usa en tests y herramientas de desarrollo.
func Generate(secret string, id Identity, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:       id.UserID,
		Role:         id.Role,
		WarehouseID:  id.WarehouseID,
		WarehouseIDs: id.WarehouseIDs,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve los claims.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
