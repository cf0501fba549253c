package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// reasonPolicy strips every tag from the free-text reason a customer types.
var reasonPolicy = bluemonday.StrictPolicy()

// plainText returns s without markup. Entities escaped by the policy are
// decoded again because the reason is stored as plain text.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(reasonPolicy.Sanitize(s)))
}

// ReturnServiceDeps groups the collaborators of ReturnService.
type ReturnServiceDeps struct {
	Returns  repositories.ReturnRepository
	Orders   repositories.OrderRepository
	Users    repositories.UserRepository
	Notifier notifications.Notifier
	Now      func() time.Time
	// ReceivedRequiresApproval refuses MarkReceived until the return is approved.
	ReceivedRequiresApproval bool
}

// ReturnService handles per order line return requests.
type ReturnService struct {
	returnRepo               repositories.ReturnRepository
	orderRepo                repositories.OrderRepository
	userRepo                 repositories.UserRepository
	notifier                 notifications.Notifier
	now                      func() time.Time
	receivedRequiresApproval bool
}

// NewReturnService creates a new ReturnService.
func NewReturnService(deps ReturnServiceDeps) *ReturnService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NopNotifier{}
	}
	return &ReturnService{
		returnRepo:               deps.Returns,
		orderRepo:                deps.Orders,
		userRepo:                 deps.Users,
		notifier:                 deps.Notifier,
		now:                      deps.Now,
		receivedRequiresApproval: deps.ReceivedRequiresApproval,
	}
}

// RequestReturnCommand is a customer's return request for one order line.
type RequestReturnCommand struct {
	UserID    string
	OrderID   string
	ProductID string
	Reason    string
}

// RequestReturn records a pending return. A user gets at most one request per
// order and product; the repository enforces this atomically.
func (s *ReturnService) RequestReturn(ctx context.Context, cmd RequestReturnCommand) (*models.ReturnRequest, error) {
	reason := plainText(cmd.Reason)
	switch {
	case cmd.OrderID == "":
		return nil, validationError("orderId is required")
	case cmd.ProductID == "":
		return nil, validationError("productId is required")
	case reason == "":
		return nil, validationError("reason is required")
	}

	user, err := loadUser(ctx, s.userRepo, cmd.UserID)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", cmd.OrderID, err)
	}
	if order.UserID != user.ID {
		return nil, ErrOrderNotFound
	}
	if !order.HasProduct(cmd.ProductID) {
		return nil, ErrProductNotInOrder
	}

	ret := &models.ReturnRequest{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		OrderID:   order.ID,
		ProductID: cmd.ProductID,
		Reason:    reason,
		Status:    models.ReturnStatusPending,
		Received:  false,
	}
	if err := s.returnRepo.Create(ctx, ret); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateReturn
		}
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}

	event := notifications.NewEvent(notifications.EventReturnRequested, recipientOf(user), s.now())
	event.OrderID = ret.OrderID
	event.ProductID = ret.ProductID
	event.ReturnID = ret.ID
	event.Reason = ret.Reason
	event.Status = string(ret.Status)
	s.notifier.Notify(ctx, event)

	log.Info().Str("return_id", ret.ID).Str("order_id", ret.OrderID).Str("product_id", ret.ProductID).Msg("Return requested")
	return ret, nil
}

// Decide approves or rejects a pending return. Deciding the same way again
// returns the request unchanged; changing a decision is not allowed.
func (s *ReturnService) Decide(ctx context.Context, returnID string, status models.ReturnStatus) (*models.ReturnRequest, error) {
	if status != models.ReturnStatusApproved && status != models.ReturnStatusRejected {
		return nil, validationError("status must be approved or rejected")
	}
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Status == status {
		return ret, nil
	}
	if ret.Status != models.ReturnStatusPending {
		return nil, newInvalidTransition("return", string(ret.Status), string(status))
	}
	owner, err := loadUser(ctx, s.userRepo, ret.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.returnRepo.UpdateStatus(ctx, ret.ID, models.ReturnStatusPending, status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStaleWrite):
			return nil, ErrConcurrentUpdate
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to update return status: %w", err)
	}
	ret.Status = status

	event := notifications.NewEvent(notifications.EventReturnDecided, recipientOf(owner), s.now())
	event.OrderID = ret.OrderID
	event.ProductID = ret.ProductID
	event.ReturnID = ret.ID
	event.Status = string(status)
	s.notifier.Notify(ctx, event)

	log.Info().Str("return_id", ret.ID).Str("status", string(status)).Msg("Return decided")
	return ret, nil
}

// MarkReceived records that the returned product arrived. The flag never
// goes back to false and no notification is sent.
func (s *ReturnService) MarkReceived(ctx context.Context, returnID string) (*models.ReturnRequest, error) {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Received {
		return ret, nil
	}
	if s.receivedRequiresApproval && ret.Status != models.ReturnStatusApproved {
		return nil, newError(ErrInvalidTransition, "invalid_transition",
			fmt.Sprintf("cannot mark return as received while %s", ret.Status))
	}
	if err := s.returnRepo.MarkReceived(ctx, ret.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to mark return received: %w", err)
	}
	ret.Received = true
	log.Info().Str("return_id", ret.ID).Msg("Return marked received")
	return ret, nil
}

// ListForUser returns the requests made by userID.
func (s *ReturnService) ListForUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	returns, err := s.returnRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	return returns, nil
}

// ListAll returns every request annotated with the owner's contact details.
func (s *ReturnService) ListAll(ctx context.Context) ([]models.ReturnWithContact, error) {
	returns, err := s.returnRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}

	seen := make(map[string]struct{}, len(returns))
	ids := make([]string, 0, len(returns))
	for _, r := range returns {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load return owners: %w", err)
	}
	contacts := make(map[string]models.UserContact, len(users))
	for _, u := range users {
		contacts[u.ID] = u.Contact()
	}

	annotated := make([]models.ReturnWithContact, 0, len(returns))
	for _, r := range returns {
		annotated = append(annotated, models.ReturnWithContact{ReturnRequest: r, User: contacts[r.UserID]})
	}
	return annotated, nil
}

func (s *ReturnService) loadReturn(ctx context.Context, returnID string) (*models.ReturnRequest, error) {
	ret, err := s.returnRepo.GetByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to load return %s: %w", returnID, err)
	}
	return ret, nil
}
