package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/hash"
	"mediconnect/pkg/log"
	"mediconnect/pkg/token"
)

// RegisterInput 是注册请求的入参，角色决定创建哪类档案。
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	// 患者档案
	FullName string `json:"fullName"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`

	// 医生档案
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification"`
	ExperienceYrs  int    `json:"experienceYears"`

	// 药房档案
	StoreName string `json:"storeName"`
}

// UserService 接口定义了所有与账号相关的业务操作。
type UserService interface {
	Register(input RegisterInput) (*model.User, error)
	Login(username, password string) (accessToken, refreshToken string, err error)
	GetProfile(username string) (*model.User, error)
	UpdateProfile(username, email string) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	doctorRepo repository.DoctorRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, doctorRepo repository.DoctorRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		doctorRepo: doctorRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
	}
}

// Register 处理注册：创建账号并按角色创建对应档案。
func (s *userService) Register(input RegisterInput) (*model.User, error) {
	// 1. 检查用户名是否已存在
	_, err := s.userRepo.FindByUsername(input.Username)
	if err == nil {
		return nil, errors.New("用户名已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role := input.Role
	switch role {
	case model.RolePatient, model.RoleDoctor, model.RolePharmacist:
	case "":
		role = model.RolePatient
	default:
		return nil, fmt.Errorf("未知角色: %s", input.Role)
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	// 3. 创建账号
	newUser := &model.User{
		Username: input.Username,
		Password: hashedPassword,
		Email:    input.Email,
		Role:     role,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}

	// 4. 按角色创建档案。医生默认未审核，需管理流程打开 verified。
	switch role {
	case model.RolePatient:
		err = s.userRepo.CreatePatient(&model.Patient{
			UserID:   newUser.ID,
			FullName: input.FullName,
			Age:      input.Age,
			Gender:   input.Gender,
			Phone:    input.Phone,
			Address:  input.Address,
		})
	case model.RoleDoctor:
		err = s.doctorRepo.Create(&model.Doctor{
			UserID:         newUser.ID,
			FullName:       input.FullName,
			Specialization: input.Specialization,
			Qualification:  input.Qualification,
			ExperienceYrs:  input.ExperienceYrs,
		})
	case model.RolePharmacist:
		err = s.userRepo.CreatePharmacy(&model.PharmacyStore{
			UserID:    newUser.ID,
			StoreName: input.StoreName,
			Address:   input.Address,
			Phone:     input.Phone,
		})
	}
	if err != nil {
		log.Errorf("创建角色档案失败, username=%s, role=%s: %v", input.Username, role, err)
		return nil, fmt.Errorf("创建角色档案失败: %w", err)
	}

	return newUser, nil
}

// Login 校验凭证并签发 access/refresh 令牌对。
func (s *userService) Login(username, password string) (accessToken, refreshToken string, err error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", errors.New("invalid credentials")
		}
		return "", "", err
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", errors.New("invalid credentials")
	}

	accessToken, err = s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// GetProfile 根据用户名获取账号信息。
func (s *userService) GetProfile(username string) (*model.User, error) {
	return s.userRepo.FindByUsername(username)
}

// UpdateProfile 更新账号层信息，目前仅支持邮箱。
func (s *userService) UpdateProfile(username, email string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	user.Email = email
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout 把令牌加入黑名单，剩余有效期作为黑名单过期时间。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	return s.tokenRepo.Blacklist(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

// RefreshToken 用 refresh 令牌换发新的令牌对，旧令牌随即拉黑。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	blacklisted, err := s.tokenRepo.IsBlacklisted(ctx, refreshTokenString)
	if err != nil {
		return "", "", err
	}
	if blacklisted {
		return "", "", errors.New("refresh token has been revoked")
	}

	newAccessToken, err := s.jwtManager.GenerateToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		return "", "", err
	}
	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		return "", "", err
	}

	if err := s.tokenRepo.Blacklist(ctx, refreshTokenString, time.Until(claims.ExpiresAt.Time)); err != nil {
		log.Warnf("拉黑旧 refresh 令牌失败: %v", err)
	}

	return newAccessToken, newRefreshToken, nil
}
