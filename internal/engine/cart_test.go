package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/velora/storefront/internal/domain"
	"github.com/velora/storefront/internal/guard"
	apperrors "github.com/velora/storefront/pkg/errors"
)

// --- Mock Cart Gateway ---

type mockCartGateway struct {
	mock.Mock
}

func (m *mockCartGateway) ListCart(ctx context.Context) ([]domain.CartLine, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CartLine), args.Error(1)
}

func (m *mockCartGateway) AddCartLine(ctx context.Context, productID string, quantity int) (domain.CartLine, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Get(0).(domain.CartLine), args.Error(1)
}

func (m *mockCartGateway) UpdateCartLine(ctx context.Context, lineID string, quantity int) error {
	args := m.Called(ctx, lineID, quantity)
	return args.Error(0)
}

func (m *mockCartGateway) DeleteCartLine(ctx context.Context, lineID string) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

// --- Mock Auth State ---

type mockAuthState struct {
	mu            sync.Mutex
	authenticated bool
}

func (m *mockAuthState) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

func (m *mockAuthState) set(v bool) {
	m.mu.Lock()
	m.authenticated = v
	m.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCart(gw CartGateway) (*Cart, *mockAuthState) {
	auth := &mockAuthState{authenticated: true}
	return NewCart(gw, guard.New(), auth, testLogger()), auth
}

// --- Tests ---

func TestCart_Add(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)

	require.NoError(t, cart.Add(context.Background(), "p1"))

	assert.True(t, cart.IsPresent("p1"))
	assert.Equal(t, 1, cart.Count())
	gw.AssertExpectations(t)
}

func TestCart_Add_ExistingProductReplacesLine(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil).Once()
	// The server merges quantities and echoes the same line.
	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 2}, nil).Once()

	require.NoError(t, cart.Add(context.Background(), "p1"))
	require.NoError(t, cart.Add(context.Background(), "p1"))

	// Still one line, with the server's merged quantity.
	assert.Equal(t, 1, cart.Count())
	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCart_Add_Unauthenticated(t *testing.T) {
	gw := new(mockCartGateway)
	cart, auth := newTestCart(gw)
	auth.set(false)

	err := cart.Add(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrAuthRequired))

	// No network call is made.
	gw.AssertNotCalled(t, "AddCartLine", mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_Add_EmptyProductID(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	err := cart.Add(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCart_Add_GatewayFailureLeavesStateUntouched(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{}, apperrors.Unavailable("commerce api returned status 500"))

	err := cart.Add(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.False(t, cart.IsPresent("p1"))
	assert.Equal(t, 0, cart.Count())
}

func TestCart_Add_ValidationRejectionPreservesState(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil).Once()
	gw.On("AddCartLine", mock.Anything, "p2", 1).
		Return(domain.CartLine{}, apperrors.Validation("out of stock")).Once()

	require.NoError(t, cart.Add(context.Background(), "p1"))

	err := cart.Add(context.Background(), "p2")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	// The server message survives for the caller to surface.
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "out of stock", appErr.Message)

	// Prior state is intact, the rejected product is absent.
	assert.True(t, cart.IsPresent("p1"))
	assert.False(t, cart.IsPresent("p2"))
	assert.Equal(t, 1, cart.Count())
}

func TestCart_Add_ConcurrentDuplicateRejected(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	release := make(chan struct{})
	entered := make(chan struct{})
	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil).Once()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- cart.Add(context.Background(), "p1")
	}()

	// Wait until the first add holds the guard key inside the gateway call.
	<-entered

	err := cart.Add(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrInFlight))

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, cart.Count())
}

func TestCart_Remove(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("DeleteCartLine", mock.Anything, "l1").Return(nil)

	require.NoError(t, cart.Add(context.Background(), "p1"))
	require.NoError(t, cart.Remove(context.Background(), "p1"))

	assert.False(t, cart.IsPresent("p1"))
	assert.Equal(t, 0, cart.Count())
}

func TestCart_Remove_AbsentFailsFast(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	err := cart.Remove(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// No network call for a product with no local line.
	gw.AssertNotCalled(t, "DeleteCartLine", mock.Anything, mock.Anything)
}

func TestCart_Remove_ServerNotFoundIsSuccess(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	// Another client already deleted the line server-side.
	gw.On("DeleteCartLine", mock.Anything, "l1").
		Return(apperrors.AlreadyDone("cart line"))

	require.NoError(t, cart.Add(context.Background(), "p1"))
	require.NoError(t, cart.Remove(context.Background(), "p1"))

	// The local remnant is still cleaned up.
	assert.False(t, cart.IsPresent("p1"))
}

func TestCart_Remove_ServerFailurePreservesLine(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("DeleteCartLine", mock.Anything, "l1").
		Return(apperrors.Unavailable("commerce api returned status 500"))

	require.NoError(t, cart.Add(context.Background(), "p1"))

	err := cart.Remove(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.True(t, cart.IsPresent("p1"))
}

func TestCart_UpdateQuantity(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("UpdateCartLine", mock.Anything, "l1", 5).Return(nil)

	require.NoError(t, cart.Add(context.Background(), "p1"))
	require.NoError(t, cart.UpdateQuantity(context.Background(), "p1", 5))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestCart_UpdateQuantity_FloorRejectedBeforeNetwork(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	for _, q := range []int{0, -1} {
		err := cart.UpdateQuantity(context.Background(), "p1", q)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}

	gw.AssertNotCalled(t, "UpdateCartLine", mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_UpdateQuantity_AbsentLine(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	err := cart.UpdateQuantity(context.Background(), "p1", 2)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	gw.AssertNotCalled(t, "UpdateCartLine", mock.Anything, mock.Anything, mock.Anything)
}

func TestCart_UpdateQuantity_ServerRejectionKeepsOldQuantity(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("UpdateCartLine", mock.Anything, "l1", 99).
		Return(apperrors.Validation("quantity exceeds stock"))

	require.NoError(t, cart.Add(context.Background(), "p1"))

	err := cart.UpdateQuantity(context.Background(), "p1", 99)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestCart_FetchAll(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("ListCart", mock.Anything).Return([]domain.CartLine{
		{LineID: "l1", ProductID: "p1", Quantity: 2},
		{LineID: "l2", ProductID: "p2", Quantity: 1},
	}, nil)

	require.NoError(t, cart.FetchAll(context.Background()))
	assert.Equal(t, 2, cart.Count())
	assert.True(t, cart.IsPresent("p1"))
	assert.True(t, cart.IsPresent("p2"))
}

func TestCart_FetchAll_AuthFailureClearsState(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("ListCart", mock.Anything).
		Return(nil, apperrors.AuthRequired("session is no longer valid"))

	require.NoError(t, cart.Add(context.Background(), "p1"))

	err := cart.FetchAll(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrAuthRequired))
	assert.Equal(t, 0, cart.Count())
}

func TestCart_FetchAll_TransientFailurePreservesState(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)
	gw.On("ListCart", mock.Anything).
		Return(nil, apperrors.Unavailable("commerce api returned status 503"))

	require.NoError(t, cart.Add(context.Background(), "p1"))

	err := cart.FetchAll(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.True(t, cart.IsPresent("p1"))
}

func TestCart_Clear(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)

	require.NoError(t, cart.Add(context.Background(), "p1"))
	cart.Clear()

	assert.Equal(t, 0, cart.Count())
	assert.False(t, cart.IsPresent("p1"))
	// Clear is purely local.
	gw.AssertNotCalled(t, "DeleteCartLine", mock.Anything, mock.Anything)
}

func TestCart_LinesReturnsCopy(t *testing.T) {
	gw := new(mockCartGateway)
	cart, _ := newTestCart(gw)

	gw.On("AddCartLine", mock.Anything, "p1", 1).
		Return(domain.CartLine{LineID: "l1", ProductID: "p1", Quantity: 1}, nil)

	require.NoError(t, cart.Add(context.Background(), "p1"))

	lines := cart.Lines()
	lines[0].Quantity = 42

	assert.Equal(t, 1, cart.Lines()[0].Quantity)
}
