package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/galerija/internal/catalog"
	"github.com/erazemk/galerija/internal/imaging"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/reconcile"
	"github.com/erazemk/galerija/internal/transfer"
)

// DefaultMaxBodyBytes bounds a submit body when no limit is configured.
const DefaultMaxBodyBytes = 25 << 20

const uploadedMessage = "Files uploaded successfully"

// ImagesHandler handles product image submits and listings.
type ImagesHandler struct {
	Reconciler   *reconcile.Reconciler
	Catalog      *catalog.Catalog
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// UploadDefault handles POST /upload. Bodies from the original browser
// client carry no fileType, so it is sniffed from the bytes.
func (h *ImagesHandler) UploadDefault(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, model.DefaultProduct, true)
}

// Upload handles POST /api/products/{product}/images.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	product := r.PathValue("product")
	if !model.ValidProductID(product) {
		jsonError(w, http.StatusBadRequest, "invalid product")
		return
	}
	h.submit(w, r, product, false)
}

func (h *ImagesHandler) submit(w http.ResponseWriter, r *http.Request, product string, sniffTypes bool) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	var req transfer.UploadRequest
	if status, err := decodeJSON(w, r, limit, &req); err != nil {
		jsonError(w, status, err.Error())
		return
	}
	if req.ImagesBlob == nil {
		jsonError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if sniffTypes {
		sniffFileTypes(&req)
	}

	delta, meta, err := req.ToDelta()
	if err != nil {
		h.submitError(w, product, err)
		return
	}

	res, err := h.Reconciler.Apply(r.Context(), reconcile.Submission{
		Product:     product,
		ProductName: meta.ProductName,
		Description: meta.Description,
		Delta:       delta,
	})
	if err != nil {
		h.submitError(w, product, err)
		return
	}
	h.Catalog.Invalidate(product)

	resp := transfer.UploadResponse{
		Message:   uploadedMessage,
		FilePaths: make([]string, 0, len(res.Images)),
		Images:    make([]transfer.ImageRef, 0, len(res.Images)),
	}
	for _, img := range res.Images {
		resp.FilePaths = append(resp.FilePaths, filePath(product, img.FileName))
		resp.Images = append(resp.Images, imageRef(img))
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (h *ImagesHandler) submitError(w http.ResponseWriter, product string, err error) {
	status := submitStatus(err)
	if status == http.StatusBadRequest {
		jsonError(w, status, err.Error())
		return
	}
	h.Logger.Error("submit failed", "product", product, "error", err)
	jsonError(w, status, "failed to store images")
}

// sniffFileTypes fills the missing fileType of inline entries from their
// bytes. Entries that do not decode are left for the reconciler to reject.
func sniffFileTypes(req *transfer.UploadRequest) {
	for i, img := range req.ImagesBlob {
		if img.Data == nil || img.FileType != "" || img.Kind == transfer.KindReference {
			continue
		}
		data, err := transfer.Decode(*img.Data)
		if err != nil || len(data) == 0 {
			continue
		}
		req.ImagesBlob[i].FileType = imaging.Sniff(data)
	}
}

// List handles GET /api/products/{product}/images.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	product := r.PathValue("product")
	if !model.ValidProductID(product) {
		jsonError(w, http.StatusBadRequest, "invalid product")
		return
	}

	l, err := h.Catalog.Get(r.Context(), product)
	if err != nil {
		h.Logger.Error("listing images", "product", product, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	resp := transfer.Listing{
		Product:     product,
		Name:        l.Product.Name,
		Description: l.Product.Description,
		Images:      make([]transfer.ImageRef, 0, len(l.Images)),
	}
	for _, img := range l.Images {
		resp.Images = append(resp.Images, imageRef(img))
	}
	jsonResponse(w, http.StatusOK, resp)
}

// ListProducts handles GET /api/products.
func (h *ImagesHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Products(r.Context())
	if err != nil {
		h.Logger.Error("listing products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

func filePath(product, name string) string {
	return "uploads/" + product + "/" + name
}

func imageRef(img model.Image) transfer.ImageRef {
	return transfer.ImageRef{
		ID:       img.ID,
		Order:    img.Order,
		URL:      "/" + filePath(img.Product, img.FileName),
		FileType: img.ContentType,
	}
}
