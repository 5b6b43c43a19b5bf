package handlers

import (
	"backend/models"
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetProducts lists the product catalog.
// @Summary List products
// @Tags Products
// @Produce json
// @Param search query string false "Filter by name substring"
// @Success 200 {array} models.Product
// @Failure 500 {object} models.ErrorResponse
// @Router /api/products [get]
func GetProducts(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `SELECT id, name, COALESCE(unit, '') FROM products`
		args := []interface{}{}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			query += ` WHERE name ILIKE $1`
			args = append(args, "%"+search+"%")
		}
		query += ` ORDER BY name`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products", "details": err.Error()})
			return
		}
		defer rows.Close()

		products := []models.Product{}
		for rows.Next() {
			var p models.Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Unit); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product", "details": err.Error()})
				return
			}
			products = append(products, p)
		}

		c.JSON(http.StatusOK, products)
	}
}

// CreateProduct adds a product to the catalog.
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param body body models.Product true "Product data"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/products [post]
func CreateProduct(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetSessionDetails(c, db); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var product models.Product
		if err := c.ShouldBindJSON(&product); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}
		if strings.TrimSpace(product.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		err := db.QueryRow(
			`INSERT INTO products (name, unit) VALUES ($1, $2) RETURNING id`,
			product.Name, product.Unit,
		).Scan(&product.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, product)
	}
}
