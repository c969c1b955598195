package rpc

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"treasurehunt/core"
	"treasurehunt/core/types"
	"treasurehunt/crypto"
	"treasurehunt/indexer"
	"treasurehunt/native/metadata"
	"treasurehunt/native/token"
	"treasurehunt/native/treasure"
)

// ChainInfo summarises the node head.
type ChainInfo struct {
	ChainID   string      `json:"chainId"`
	Height    uint64      `json:"height"`
	StateRoot common.Hash `json:"stateRoot"`
}

// SendTransactionResult is returned for executed transactions.
type SendTransactionResult struct {
	TxHash  hexutil.Bytes  `json:"txHash"`
	Receipt *types.Receipt `json:"receipt"`
}

// Page sizes for treasure queries. A zero limit selects the default; larger
// requests are capped so one call cannot decode every record under the node lock.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

func pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

// ListParams pages through treasures.
type ListParams struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ListResult is a page of treasures.
type ListResult struct {
	Treasures []*treasure.Record `json:"treasures"`
	Total     int                `json:"total"`
}

// NearbyParams selects treasures around a point.
type NearbyParams struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radiusMeters"`
	UnfoundOnly  bool    `json:"unfoundOnly"`
	Limit        int     `json:"limit"`
}

// BalanceResult reports a token balance.
type BalanceResult struct {
	Owner   crypto.Address `json:"owner"`
	Mint    crypto.Address `json:"mint"`
	Account crypto.Address `json:"account"`
	Amount  string         `json:"amount"`
}

// MetadataResult bundles a mint with its metadata and master edition.
type MetadataResult struct {
	Mint          *token.Mint             `json:"mint"`
	Metadata      *metadata.Metadata      `json:"metadata"`
	MasterEdition *metadata.MasterEdition `json:"masterEdition,omitempty"`
}

func decodeAddress(req *RPCRequest, i int) (crypto.Address, *RPCError) {
	var raw string
	if err := decodeParam(req, i, &raw); err != nil {
		return crypto.Address{}, err
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, &RPCError{Code: codeInvalidParams, Message: "invalid address", Data: err.Error()}
	}
	return addr, nil
}

// notFoundErrors map onto codeNotFound.
var notFoundErrors = []error{
	core.ErrReceiptNotFound,
	treasure.ErrTreasureNotFound,
	token.ErrMintNotFound,
	metadata.ErrMetadataNotFound,
	indexer.ErrPlayerNotFound,
}

func queryError(err error) *RPCError {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return &RPCError{Code: codeNotFound, Message: err.Error()}
		}
	}
	return &RPCError{Code: codeServerError, Message: err.Error()}
}

func (s *Server) handleChainInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, ChainInfo{
		ChainID:   s.node.ChainID(),
		Height:    s.node.Height(),
		StateRoot: s.node.StateRoot(),
	})
}

func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, rpcErr := decodeAddress(req, 0)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, nonce)
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var tx types.Transaction
	if rpcErr := decodeParam(req, 0, &tx); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	hash, err := tx.Hash()
	if err != nil {
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidParams, Message: "invalid transaction", Data: err.Error()})
		return
	}
	receipt, err := s.node.SubmitTransaction(r.Context(), &tx)
	switch {
	case err == nil:
		writeResult(w, req.ID, SendTransactionResult{TxHash: hash, Receipt: receipt})
	case errors.Is(err, core.ErrDuplicateTransaction):
		writeRPCError(w, req.ID, &RPCError{Code: codeDuplicateTx, Message: err.Error()})
	case errors.Is(err, core.ErrExecutionFailed):
		writeRPCError(w, req.ID, &RPCError{Code: codeTxRejected, Message: err.Error(), Data: SendTransactionResult{TxHash: hash, Receipt: receipt}})
	case receipt == nil && isValidationError(err):
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidParams, Message: err.Error()})
	default:
		s.logger.Error("send transaction failed", "error", err)
		writeRPCError(w, req.ID, &RPCError{Code: codeServerError, Message: "failed to process transaction"})
	}
}

var validationErrors = []error{
	core.ErrInvalidTransaction,
	core.ErrNonceMismatch,
	types.ErrChainIDMismatch,
	types.ErrUnknownTxType,
	types.ErrMissingCosigner,
	types.ErrMissingSignature,
	types.ErrInvalidSignature,
	types.ErrEmptyInstructions,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var raw string
	if rpcErr := decodeParam(req, 0, &raw); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	hash, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(hash) != common.HashLength {
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidParams, Message: "invalid transaction hash"})
		return
	}
	receipt, err := s.node.Receipt(hash)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleTreasureGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, rpcErr := decodeAddress(req, 0)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	record, err := s.node.Treasure(addr)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, record)
}

func (s *Server) handleTreasureList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ListParams
	if rpcErr := decodeOptionalParam(req, 0, &params); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	if params.Offset < 0 || params.Limit < 0 {
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidParams, Message: "offset and limit must be non-negative"})
		return
	}
	records, total, err := s.node.Treasures(params.Offset, pageLimit(params.Limit))
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	if records == nil {
		records = []*treasure.Record{}
	}
	writeResult(w, req.ID, ListResult{Treasures: records, Total: total})
}

func (s *Server) handleTreasureNearby(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params NearbyParams
	if rpcErr := decodeParam(req, 0, &params); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	if params.Lat < -90 || params.Lat > 90 || params.Lng < -180 || params.Lng > 180 {
		writeRPCError(w, req.ID, &RPCError{Code: codeInvalidParams, Message: "position out of range"})
		return
	}
	results, err := s.node.NearbyTreasures(treasure.NearbyQuery{
		Lat:          params.Lat,
		Lng:          params.Lng,
		RadiusMeters: params.RadiusMeters,
		UnfoundOnly:  params.UnfoundOnly,
		Limit:        pageLimit(params.Limit),
	})
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	owner, rpcErr := decodeAddress(req, 0)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	mint, rpcErr := decodeAddress(req, 1)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	amount, err := s.node.TokenBalance(owner, mint)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, BalanceResult{
		Owner:   owner,
		Mint:    mint,
		Account: token.AssociatedAddress(owner, mint),
		Amount:  amount.Dec(),
	})
}

func (s *Server) handleMetadataGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	mintAddr, rpcErr := decodeAddress(req, 0)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	mint, err := s.node.TokenMint(mintAddr)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	md, edition, err := s.node.Metadata(mintAddr)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, MetadataResult{Mint: mint, Metadata: md, MasterEdition: edition})
}

func (s *Server) leaderboard(w http.ResponseWriter, req *RPCRequest) bool {
	if s.board == nil {
		writeRPCError(w, req.ID, &RPCError{Code: codeServerError, Message: "leaderboard indexer disabled"})
		return false
	}
	return true
}

func (s *Server) handleLeaderboardTop(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.leaderboard(w, req) {
		return
	}
	limit := indexer.DefaultLeaderboardLimit
	if rpcErr := decodeOptionalParam(req, 0, &limit); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	entries, err := s.board.Top(r.Context(), limit)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, entries)
}

func (s *Server) handleLeaderboardPlayer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.leaderboard(w, req) {
		return
	}
	addr, rpcErr := decodeAddress(req, 0)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	entry, err := s.board.Player(r.Context(), addr.String())
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, entry)
}

func (s *Server) handleLeaderboardSearch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.leaderboard(w, req) {
		return
	}
	var query string
	if rpcErr := decodeParam(req, 0, &query); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	limit := indexer.DefaultLeaderboardLimit
	if rpcErr := decodeOptionalParam(req, 1, &limit); rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	entries, err := s.board.Search(r.Context(), query, limit)
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, entries)
}

func (s *Server) handleLeaderboardStats(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.leaderboard(w, req) {
		return
	}
	stats, err := s.board.Stats(r.Context())
	if err != nil {
		writeRPCError(w, req.ID, queryError(err))
		return
	}
	writeResult(w, req.ID, stats)
}
