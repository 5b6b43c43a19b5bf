package handlers

import (
	"backend/models"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CreateVendor creates a new vendor.
// @Summary Create vendor
// @Description Creates a new vendor in the catalog. Requires Authorization header.
// @Tags Vendors
// @Accept json
// @Produce json
// @Param body body models.Vendor true "Vendor data"
// @Success 201 {object} models.Vendor
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/vendors [post]
func CreateVendor(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSessionDetails(c, db)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var vendor models.Vendor
		if err = c.ShouldBindJSON(&vendor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}
		if strings.TrimSpace(vendor.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		vendor.CreatedAt = time.Now()
		vendor.UpdatedAt = time.Now()
		vendor.CreatedBy = session.Email
		vendor.UpdatedBy = session.Email
		if vendor.Status == "" {
			vendor.Status = "active"
		}

		query := `
			INSERT INTO inv_vendors (name, email, phone, address, status, vendor_type, created_at, updated_at, created_by, updated_by, project_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING vendor_id
		`
		err = db.QueryRow(query,
			vendor.Name, vendor.Email, vendor.Phone, vendor.Address,
			vendor.Status, vendor.VendorType, vendor.CreatedAt, vendor.UpdatedAt,
			vendor.CreatedBy, vendor.UpdatedBy, vendor.ProjectID,
		).Scan(&vendor.VendorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vendor", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, vendor)
	}
}

// GetVendors lists vendors, optionally filtered by status or type.
// @Summary List vendors
// @Tags Vendors
// @Produce json
// @Param status query string false "Filter by status"
// @Param vendor_type query string false "Filter by vendor type"
// @Success 200 {array} models.Vendor
// @Failure 500 {object} models.ErrorResponse
// @Router /api/vendors [get]
func GetVendors(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `
			SELECT vendor_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			       COALESCE(status, ''), COALESCE(vendor_type, ''), project_id,
			       created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
			FROM inv_vendors
			WHERE 1=1
		`
		args := []interface{}{}
		if status := c.Query("status"); status != "" {
			args = append(args, status)
			query += " AND status = $1"
		}
		if vt := c.Query("vendor_type"); vt != "" {
			args = append(args, vt)
			if len(args) == 1 {
				query += " AND vendor_type = $1"
			} else {
				query += " AND vendor_type = $2"
			}
		}
		query += " ORDER BY name"

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vendors", "details": err.Error()})
			return
		}
		defer rows.Close()

		vendors := []models.Vendor{}
		for rows.Next() {
			var v models.Vendor
			if err := rows.Scan(&v.VendorID, &v.Name, &v.Email, &v.Phone, &v.Address,
				&v.Status, &v.VendorType, &v.ProjectID,
				&v.CreatedAt, &v.UpdatedAt, &v.CreatedBy, &v.UpdatedBy); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan vendor", "details": err.Error()})
				return
			}
			vendors = append(vendors, v)
		}

		c.JSON(http.StatusOK, vendors)
	}
}

// GetVendorByID returns a single vendor.
// @Summary Get vendor
// @Tags Vendors
// @Produce json
// @Param id path int true "Vendor ID"
// @Success 200 {object} models.Vendor
// @Failure 404 {object} models.ErrorResponse
// @Router /api/vendors/{id} [get]
func GetVendorByID(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor id"})
			return
		}

		var v models.Vendor
		err = db.QueryRow(`
			SELECT vendor_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
			       COALESCE(status, ''), COALESCE(vendor_type, ''), project_id,
			       created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
			FROM inv_vendors WHERE vendor_id = $1
		`, id).Scan(&v.VendorID, &v.Name, &v.Email, &v.Phone, &v.Address,
			&v.Status, &v.VendorType, &v.ProjectID,
			&v.CreatedAt, &v.UpdatedAt, &v.CreatedBy, &v.UpdatedBy)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vendor", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, v)
	}
}

// UpdateVendor updates vendor catalog fields.
// @Summary Update vendor
// @Tags Vendors
// @Accept json
// @Produce json
// @Param id path int true "Vendor ID"
// @Param body body models.Vendor true "Vendor data"
// @Success 200 {object} models.Vendor
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/vendors/{id} [put]
func UpdateVendor(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSessionDetails(c, db)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor id"})
			return
		}

		var vendor models.Vendor
		if err = c.ShouldBindJSON(&vendor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE inv_vendors
			SET name = $1, email = $2, phone = $3, address = $4, status = $5,
			    vendor_type = $6, updated_at = $7, updated_by = $8
			WHERE vendor_id = $9
		`, vendor.Name, vendor.Email, vendor.Phone, vendor.Address, vendor.Status,
			vendor.VendorType, time.Now(), session.Email, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vendor", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}

		vendor.VendorID = id
		c.JSON(http.StatusOK, vendor)
	}
}
