package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"snowtricks-server/internal/modules/trick/dto"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// bindSaveRequest 支持两种提交方式：
// JSON 请求体；或 multipart 表单，payload 字段为同样的 JSON，image_<序号> 为对应图片的原图。
func bindSaveRequest(c *gin.Context) (dto.SaveTrickRequest, error) {
	var req dto.SaveTrickRequest
	if !strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, err
	}
	payload := form.Value["payload"]
	if len(payload) != 1 {
		return req, errors.New("缺少 payload 字段")
	}
	if err := json.Unmarshal([]byte(payload[0]), &req); err != nil {
		return req, err
	}
	for i := range req.Images {
		if files := form.File[fmt.Sprintf("image_%d", i)]; len(files) > 0 {
			req.Images[i].File = files[0]
		}
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return req, err
	}
	return req, nil
}
