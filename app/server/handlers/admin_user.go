package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gramflow/app/server/middlewares"
	"gramflow/app/server/models"
)

type userInfo struct {
	ID                 uint            `json:"id"`
	Email              string          `json:"email"`
	Name               string          `json:"name"`
	Role               models.UserRole `json:"role"`
	EmailVerified      *time.Time      `json:"emailVerified,omitempty"`
	IsTwoFactorEnabled bool            `json:"isTwoFactorEnabled"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type userListResponse struct {
	Limit   int        `json:"limit"`
	PageMax int64      `json:"pageMax"`
	List    []userInfo `json:"list"`
}

// authAdmin 管理接口的角色校验；路由守卫已拦截页面访问，这里兜住直连 API 的情况
func (a *App) authAdmin(c echo.Context) error {
	claims := middlewares.RefreshedClaims(c)
	if claims == nil {
		return a.er(c, http.StatusUnauthorized)
	}
	if claims.Role != models.UserRoleAdmin {
		return a.er(c, http.StatusForbidden)
	}

	return nil
}

func (a *App) UserList(c echo.Context) error {
	if err := a.authAdmin(c); err != nil {
		return err
	}

	rctx := c.Request().Context()

	var (
		users      []models.User
		usersCount int64
	)

	showAll, page, limit := a.parsePagination(c)
	queryBase := a.db.WithContext(rctx).Model(&models.User{}).Order("id ASC")
	if !showAll {
		queryBase = queryBase.Limit(limit).Offset(page * limit)
	}

	if err := queryBase.Find(&users).Error; err != nil {
		a.l.Error("failed to get user list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&models.User{}).Count(&usersCount).Error; err != nil {
		a.l.Error("failed to count user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	resUsers := []userInfo{}
	for _, user := range users {
		resUsers = append(resUsers, userInfo{
			ID:                 user.ID,
			Email:              user.Email,
			Name:               user.Name,
			Role:               user.Role,
			EmailVerified:      user.EmailVerified,
			IsTwoFactorEnabled: user.IsTwoFactorEnabled,
			CreatedAt:          user.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, &userListResponse{
		Limit:   limit,
		PageMax: a.calcMaxPage(usersCount, showAll, limit),
		List:    resUsers,
	})
}

type userRoleUpdateRequest struct {
	Role models.UserRole `json:"role"`
}

func (a *App) UserRoleUpdate(c echo.Context) error {
	if err := a.authAdmin(c); err != nil {
		return err
	}

	rctx := c.Request().Context()

	idUint64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}
	id := uint(idUint64)

	// 绑定请求体
	var req userRoleUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Role != models.UserRoleStandard && req.Role != models.UserRoleAdmin {
		return a.er(c, http.StatusBadRequest)
	}

	// 从数据库中获得指定的用户
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.er(c, http.StatusNotFound)
		}
		a.l.Error("failed to get user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 白名单账户不允许降级，刷新时也会被重新提升回来
	if user.Role == models.UserRoleAdmin && req.Role == models.UserRoleStandard && a.resolver.IsAdminEmail(user.Email) {
		return a.er(c, http.StatusConflict)
	}

	if err := a.db.WithContext(rctx).Model(&user).Update("role", req.Role).Error; err != nil {
		a.l.Error("failed to update user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	a.refresher.Invalidate(rctx, user.ID)

	return c.JSON(http.StatusOK, &userInfo{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		Role:               req.Role,
		EmailVerified:      user.EmailVerified,
		IsTwoFactorEnabled: user.IsTwoFactorEnabled,
		CreatedAt:          user.CreatedAt,
	})
}
