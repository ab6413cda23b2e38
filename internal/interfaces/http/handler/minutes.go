// Package handler 提供 HTTP 请求处理器
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/domain/entity"
	"meeting-minutes-api/internal/interfaces/http/dto"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
)

// AudioField 上传音频的表单字段名，可重复出现
const AudioField = "audio"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MinutesService 议事录应用服务
type MinutesService interface {
	ProcessText(ctx context.Context, text string) (*minutes.ProcessResult, error)
	ProcessAudio(ctx context.Context, assets []entity.AudioAsset) (*minutes.ProcessResult, error)
	Save(ctx context.Context, in *minutes.SaveInput) (*minutes.SaveResult, error)
	List(ctx context.Context) ([]*entity.Minute, error)
	Delete(ctx context.Context, id int64) (*minutes.DeleteResult, error)
	Chat(ctx context.Context, message string) (*minutes.ChatResult, error)
	Export(ctx context.Context, w io.Writer) error
}

// MinutesHandler 议事录处理器
type MinutesHandler struct {
	svc            MinutesService
	maxUploadBytes int64
}

// NewMinutesHandler 创建议事录处理器
func NewMinutesHandler(svc MinutesService, maxUploadBytes int64) *MinutesHandler {
	return &MinutesHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Transcribe 上传音频生成议事录
// @Summary 音频生成议事录
// @Tags Minutes
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "音频文件（可多个）"
// @Success 200 {object} minutes.ProcessResult
// @Router /api/v1/minutes/transcribe [post]
func (h *MinutesHandler) Transcribe(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.ErrorWithDetail(c, http.StatusRequestEntityTooLarge, "upload too large", &dto.ErrorDetail{
				ErrorCode: string(apperrors.CodeValidationFailed),
				Details:   fmt.Sprintf("limit is %d bytes", tooLarge.Limit),
			})
			return
		}
		dto.BadRequest(c, "multipart form with an audio field is required")
		return
	}
	if form != nil {
		defer func() { _ = form.RemoveAll() }()
	}

	var assets []entity.AudioAsset
	if form != nil {
		for _, fh := range form.File[AudioField] {
			fh := fh
			assets = append(assets, entity.AudioAsset{
				Name: fh.Filename,
				Size: fh.Size,
				Open: func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}

	res, err := h.svc.ProcessAudio(c.Request.Context(), assets)
	if err != nil {
		h.fail(c, "audio minutes failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ProcessText 文本生成议事录
// @Summary 文本生成议事录
// @Tags Minutes
// @Accept json
// @Produce json
// @Param body body dto.TextRequest true "原始文本"
// @Success 200 {object} minutes.ProcessResult
// @Router /api/v1/minutes/text [post]
func (h *MinutesHandler) ProcessText(c *gin.Context) {
	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.ProcessText(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, "text minutes failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Save 保存议事录；存储失败以 status=error 的数据返回
// @Summary 保存议事录
// @Tags Minutes
// @Accept json
// @Produce json
// @Param body body dto.SaveMinutesRequest true "议事录"
// @Success 200 {object} minutes.SaveResult
// @Router /api/v1/minutes [post]
func (h *MinutesHandler) Save(c *gin.Context) {
	var req dto.SaveMinutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Save(c.Request.Context(), req.ToInput())
	if err != nil {
		h.fail(c, "save minutes failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List 列出全部议事录（ID 降序）
// @Summary 议事录列表
// @Tags Minutes
// @Produce json
// @Success 200 {object} dto.ListMinutesResponse
// @Router /api/v1/minutes [get]
func (h *MinutesHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list minutes failed", err)
		return
	}
	if list == nil {
		list = []*entity.Minute{}
	}
	c.JSON(http.StatusOK, dto.ListMinutesResponse{Minutes: list})
}

// Delete 按 ID 删除议事录
// @Summary 删除议事录
// @Tags Minutes
// @Produce json
// @Param id path int true "议事录 ID"
// @Success 200 {object} minutes.DeleteResult
// @Router /api/v1/minutes/{id} [delete]
func (h *MinutesHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		dto.BadRequest(c, "minute id must be an integer")
		return
	}

	res, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete minute failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Export 导出全部议事录为 XLSX
// @Summary 导出议事录
// @Tags Minutes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/v1/minutes/export [get]
func (h *MinutesHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), &buf); err != nil {
		h.fail(c, "export minutes failed", err)
		return
	}

	filename := fmt.Sprintf("minutes-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Chat 基于历史议事录的问答
// @Summary 议事录问答
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "问题"
// @Success 200 {object} minutes.ChatResult
// @Router /api/v1/chat [post]
func (h *MinutesHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		h.fail(c, "chat failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MinutesHandler) fail(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	if apperrors.IsValidation(err) {
		logger.Warn(ctx, msg, "error", err.Error())
	} else {
		logger.Error(ctx, msg, err)
	}
	dto.FromError(c, err)
}
