package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/erazemk/vitrina/internal/model"
	"github.com/erazemk/vitrina/internal/service"
)

// multipartMemory is how much of a multipart form is held in memory
// before parts spill to temporary files.
const multipartMemory = 1 << 20

// formOverhead is allowed on top of the image ceiling for the other fields.
const formOverhead = 1 << 20

// ProductsHandler handles product catalog endpoints.
type ProductsHandler struct {
	Catalog *service.CatalogService
}

type deleteResponse struct {
	Message   string `json:"message"`
	DeletedID int64  `json:"deletedId"`
}

// List handles GET /api/products.
func (h *ProductsHandler) List(c echo.Context) error {
	filter := model.ProductFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
	}
	if v := c.QueryParam("featured"); v != "" {
		featured, err := service.ParseFeatured(v)
		if err != nil {
			return err
		}
		filter.Featured = &featured
	}

	products, err := h.Catalog.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Get handles GET /api/products/:id.
func (h *ProductsHandler) Get(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	product, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(c echo.Context) error {
	in, upload, err := h.readForm(c)
	if err != nil {
		return err
	}
	product, err := h.Catalog.Create(c.Request().Context(), in, upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// Update handles PUT /api/products/:id.
func (h *ProductsHandler) Update(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	in, upload, err := h.readForm(c)
	if err != nil {
		return err
	}
	product, err := h.Catalog.Update(c.Request().Context(), id, in, upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// Delete handles DELETE /api/products/:id.
func (h *ProductsHandler) Delete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	deleted, err := h.Catalog.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteResponse{Message: "Product deleted successfully", DeletedID: deleted})
}

// productID parses the :id path parameter. An id that cannot name a row
// is reported the same way as a missing row.
func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.Error{Kind: service.KindNotFound, Msg: "product not found"}
	}
	return id, nil
}

// readForm decodes a multipart or urlencoded product form and its
// optional "image" file part.
func (h *ProductsHandler) readForm(c echo.Context) (service.ProductInput, *service.Upload, error) {
	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, h.Catalog.MaxUploadBytes()+formOverhead)

	var err error
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.ProductInput{}, nil, echo.NewHTTPError(http.StatusBadRequest, "request body too large")
		}
		return service.ProductInput{}, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}

	in, err := service.DecodeProductForm(r.PostForm)
	if err != nil {
		return service.ProductInput{}, nil, err
	}

	if r.MultipartForm == nil {
		return in, nil, nil
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return in, nil, nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return service.ProductInput{}, nil, fmt.Errorf("opening uploaded image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.ProductInput{}, nil, fmt.Errorf("reading uploaded image: %w", err)
	}

	return in, &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
