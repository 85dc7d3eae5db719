package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
	"github.com/yourusername/portfolio-api/internal/service"
)

const (
	defaultContactPageSize = 50
	contactSheetName       = "Contacts"
)

// AdminContactHandler: просмотр и выгрузка сообщений контактной формы
type AdminContactHandler struct {
	contactService *service.ContactService
}

func NewAdminContactHandler(contactService *service.ContactService) *AdminContactHandler {
	return &AdminContactHandler{contactService: contactService}
}

// List возвращает сообщения от новых к старым
// GET /api/admin/contacts?limit=&offset=&search=
func (h *AdminContactHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultContactPageSize)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit", "error_type": "validation_error"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset", "error_type": "validation_error"})
		return
	}

	filters := repository.ContactFilters{Search: c.Query("search")}
	contacts, total, err := h.contactService.List(filters, limit, offset)
	if err != nil {
		log.Printf("[AdminContactHandler] Ошибка получения сообщений: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "error_type": "internal_server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  contacts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Export выгружает сообщения в CSV или Excel
// GET /api/admin/contacts/export?format=csv|xlsx&search=
func (h *AdminContactHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")

	contacts, err := h.contactService.Export(repository.ContactFilters{Search: c.Query("search")})
	if err != nil {
		log.Printf("[AdminContactHandler] Ошибка выгрузки сообщений: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "error_type": "internal_server_error"})
		return
	}

	filename := fmt.Sprintf("contacts_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "csv":
		h.exportCSV(c, contacts, filename)
	default:
		h.exportXLSX(c, contacts, filename)
	}
}

func contactRow(ct entity.Contact) []string {
	return []string{
		strconv.FormatUint(uint64(ct.ID), 10),
		ct.CreatedAt.UTC().Format(time.RFC3339),
		sanitizeForExcel(ct.Name),
		sanitizeForExcel(ct.Email),
		sanitizeForExcel(ct.Subject),
		sanitizeForExcel(ct.Message),
	}
}

var contactHeaders = []string{"ID", "Created At", "Name", "Email", "Subject", "Message"}

// exportCSV экспортирует сообщения в CSV с правильным экранированием спецсимволов
func (h *AdminContactHandler) exportCSV(c *gin.Context, contacts []entity.Contact, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(contactHeaders)
	for _, ct := range contacts {
		writer.Write(contactRow(ct))
	}
}

// exportXLSX экспортирует сообщения в Excel с использованием StreamWriter
func (h *AdminContactHandler) exportXLSX(c *gin.Context, contacts []entity.Contact, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", contactSheetName); err != nil {
		log.Printf("[AdminContactHandler] Ошибка переименования листа: %v", err)
	}

	sw, err := f.NewStreamWriter(contactSheetName)
	if err != nil {
		log.Printf("[AdminContactHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", toCells(contactHeaders)); err != nil {
		log.Printf("[AdminContactHandler] Ошибка записи заголовков: %v", err)
	}
	for i, ct := range contacts {
		rowNum := i + 2 // 1 - заголовки
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), toCells(contactRow(ct))); err != nil {
			log.Printf("[AdminContactHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminContactHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminContactHandler] Ошибка записи Excel в response: %v", err)
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
