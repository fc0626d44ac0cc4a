package devnet

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AvaProtocol/ap-atlas/core/operation"
)

// Backend is an in-memory operations relay speaking the REST API used by
// backend.HTTPBackend. Tests seed solver operations and bundle hashes, then
// inspect what was submitted.
type Backend struct {
	// OnUserOperation and OnBundle run before the submission is acknowledged.
	// Set them before serving.
	OnUserOperation func(id string, req *operation.WireUserOperation)
	OnBundle        func(id string, req *operation.WireBundle)

	mu sync.Mutex

	userOps      []*operation.WireUserOperation
	bundles      []*operation.WireBundle
	solverOps    map[string][]*operation.SolverOperation
	ongoing      map[string]bool
	bundleHashes map[string]common.Hash
}

func NewBackend() *Backend {
	return &Backend{
		solverOps:    make(map[string][]*operation.SolverOperation),
		ongoing:      make(map[string]bool),
		bundleHashes: make(map[string]common.Hash),
	}
}

// SetSolverOperations makes id drainable with the given operations.
func (m *Backend) SetSolverOperations(id string, ops []*operation.SolverOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solverOps[id] = ops
	delete(m.ongoing, id)
}

// SetAuctionOngoing marks id as still collecting solver operations.
func (m *Backend) SetAuctionOngoing(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ongoing[id] = true
}

func (m *Backend) SetBundleHash(id string, hash common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundleHashes[id] = hash
}

func (m *Backend) UserOperations() []*operation.WireUserOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*operation.WireUserOperation(nil), m.userOps...)
}

func (m *Backend) Bundles() []*operation.WireBundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*operation.WireBundle(nil), m.bundles...)
}

func (m *Backend) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.POST("/userOperation", m.postUserOperation)
	e.GET("/solverOperations", m.getSolverOperations)
	e.POST("/bundleOperations", m.postBundle)
	e.GET("/bundleHash", m.getBundleHash)

	return e
}

func (m *Backend) postUserOperation(c echo.Context) error {
	var req operation.WireUserOperation
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if req.UserOperation == nil {
		return errorJSON(c, http.StatusBadRequest, "missing userOperation")
	}

	hash, err := req.UserOperation.Hash()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	m.mu.Lock()
	m.userOps = append(m.userOps, &req)
	m.mu.Unlock()
	if m.OnUserOperation != nil {
		m.OnUserOperation(hash.Hex(), &req)
	}

	return c.JSON(http.StatusOK, map[string][]string{"hashes": {hash.Hex()}})
}

func (m *Backend) getSolverOperations(c echo.Context) error {
	id := c.QueryParam("userOpHash")
	wait, _ := strconv.ParseBool(c.QueryParam("wait"))

	m.mu.Lock()
	ops, found := m.solverOps[id]
	ongoing := m.ongoing[id]
	m.mu.Unlock()

	if ongoing && !wait {
		return errorJSON(c, http.StatusTooEarly, "auction ongoing")
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, "unknown user operation")
	}
	if ops == nil {
		ops = []*operation.SolverOperation{}
	}
	return c.JSON(http.StatusOK, ops)
}

func (m *Backend) postBundle(c echo.Context) error {
	var req operation.WireBundle
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if req.UserOperation == nil || req.DAppOperation == nil {
		return errorJSON(c, http.StatusBadRequest, "incomplete bundle")
	}

	id := req.DAppOperation.UserOpHash().Hex()
	m.mu.Lock()
	m.bundles = append(m.bundles, &req)
	m.mu.Unlock()
	if m.OnBundle != nil {
		m.OnBundle(id, &req)
	}

	return c.JSON(http.StatusOK, map[string][]string{"hashes": {id}})
}

func (m *Backend) getBundleHash(c echo.Context) error {
	id := c.QueryParam("userOpHash")

	m.mu.Lock()
	hash, ok := m.bundleHashes[id]
	m.mu.Unlock()

	if !ok {
		return errorJSON(c, http.StatusNotFound, "bundle hash not available")
	}
	return c.JSON(http.StatusOK, map[string]string{"bundleHash": hash.Hex()})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"message": msg})
}
