package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform envelope for every API response.
type JSONResponse struct {
	Success bool        `json:"Success"`
	Message string      `json:"Message"`
	Object  interface{} `json:"Object"`
	Errors  []string    `json:"Errors"`
}

// PaginatedResponse extends the envelope with paging metadata.
type PaginatedResponse struct {
	JSONResponse
	PageNumber int   `json:"PageNumber"`
	PageSize   int   `json:"PageSize"`
	TotalSize  int64 `json:"TotalSize"`
}

// Respond writes a successful envelope with the given status code.
func Respond(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Success: true,
		Message: message,
		Object:  data,
	})
}

// Success returns a standard 200 response.
func Success(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, message, data)
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, message, data)
}

// Paginated returns a 200 response carrying one page of items.
func Paginated(ctx *gin.Context, message string, items interface{}, page Page, total int64) {
	ctx.JSON(http.StatusOK, PaginatedResponse{
		JSONResponse: JSONResponse{Success: true, Message: message, Object: items},
		PageNumber:   page.Number,
		PageSize:     page.Size,
		TotalSize:    total,
	})
}

// Error writes a failure envelope. errs defaults to the message itself.
func Error(ctx *gin.Context, status int, message string, errs ...string) {
	if len(errs) == 0 {
		errs = []string{message}
	}
	ctx.JSON(status, JSONResponse{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

// AbortWithError writes the envelope for err and stops the handler chain.
func AbortWithError(ctx *gin.Context, err error) {
	appErr := AsAppError(err)
	Error(ctx, appErr.Status, appErr.Message, appErr.Errors...)
	ctx.Abort()
}
