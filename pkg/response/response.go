package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码
// 2xxx 为业务规则拒绝：重试无益，除非别处状态先变化；
// AlreadyClaimed / AlreadyShared 属于幂等命中，是"拒绝"而非"故障"
const (
	CodeAlreadyClaimed     = 2001
	CodeDailyLimitReached  = 2002
	CodeInsufficientCoin   = 2003
	CodeSelfTipNotAllowed  = 2004
	CodeCreatorNotFound    = 2005
	CodeKycRequired        = 2006
	CodeBelowMinimumPayout = 2007
	CodeAlreadyShared      = 2008
	CodeBelowMinimumViews  = 2009
	CodeAlreadyReferred    = 2010
	CodeBusy               = 2011
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData 拒绝响应附带结构化细节（限额、已用量、门槛等），
// 调用方据此决定重试、等待还是放弃，而不是只看到一句"失败"
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
