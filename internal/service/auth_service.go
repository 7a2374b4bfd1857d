package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/mapper"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/specification"
	"locus/internal/repository/unitofwork"
	"locus/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = serverutils.Unauthorized("Invalid email or password")

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, claims *serverutils.Claims) error
	// UserName names the owner of an authenticated token.
	UserName(ctx context.Context, claims *serverutils.Claims) (string, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	denylist   TokenDenylist
	logger     logger.ILogger
	mapper     *mapper.UserMapper
	secret     string
	tokenTTL   time.Duration
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	denylist TokenDenylist,
	log logger.ILogger,
	secret string,
	tokenTTL time.Duration,
) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		denylist:   denylist,
		logger:     log,
		mapper:     mapper.NewUserMapper(),
		secret:     secret,
		tokenTTL:   tokenTTL,
	}
}

// Register creates the user together with the author record that signs
// their documents, and logs them in.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	// 1. Check for existing user
	existing, err := uow.UserRepository().FindOne(ctx, specification.ByUsername{Username: username})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, serverutils.BadRequest("Username already registered")
	}

	// 2. Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// 3. Author, then user
	author := entity.Author{FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName)}
	if err := uow.AuthorRepository().FindOrCreate(ctx, &author); err != nil {
		return nil, err
	}

	user := &entity.User{
		Id:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
		AuthorId:     author.Id,
		Author:       &author,
		CreatedAt:    time.Now(),
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("AuthService", "User registered", map[string]interface{}{"user_id": user.Id.String()})

	record, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Message: "User registered and logged in", User: record}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx,
		specification.ByUsername{Username: strings.TrimSpace(req.Username)},
		specification.WithAuthor{},
	)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	record, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Message: "Logged in successfully", User: record}, nil
}

// Logout revokes the token the request was made with.
func (s *authService) Logout(ctx context.Context, claims *serverutils.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *authService) UserName(ctx context.Context, claims *serverutils.Claims) (string, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", serverutils.Unauthorized("Invalid user ID")
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return "", err
	}
	if user == nil || !user.IsActive {
		return "", serverutils.Unauthorized("Unknown user")
	}
	return user.Username, nil
}

func (s *authService) issue(user *entity.User) (store.User, error) {
	token, _, err := serverutils.GenerateToken(s.secret, user.Id, s.tokenTTL)
	if err != nil {
		return store.User{}, err
	}
	record := s.mapper.ToStore(user)
	record.Token = token
	return record, nil
}
