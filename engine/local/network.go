// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package local

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bgv"
	"golang.org/x/crypto/nacl/box"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/cache"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/gateway"
)

const defaultPlaintextCacheSize = 64

var (
	_ gateway.Backend = (*Network)(nil)

	secretKeyKey = []byte("sk")
)

func ciphertextKey(inputHash common.Hash) []byte {
	return append([]byte("ct/"), inputHash.Bytes()...)
}

func handleKey(h fhevm.Handle) []byte {
	return append([]byte("h/"), h.Bytes()...)
}

// handleRecord locates a handle's value inside its input ciphertext and
// lists the addresses allowed to decrypt it.
type handleRecord struct {
	InputHash common.Hash
	Index     uint8
	Type      fhevm.ValueType
	Allowed   []common.Address
}

type NetworkConfig struct {
	ChainID    uint64
	ParamsPath string

	// Store holds ciphertexts, ACLs and the network secret key. Defaults to
	// a MemoryStore.
	Store Store

	// PlaintextCacheSize bounds the number of decrypted inputs kept in
	// memory. Defaults to 64.
	PlaintextCacheSize int
}

// Network is a single-process fhEVM network. It holds the FHE secret key,
// verifies encrypted inputs, enforces the handle ACL and serves user
// decryption sealed to the requester's ephemeral key.
type Network struct {
	log     log.Logger
	chainID uint64
	params  bgv.Parameters
	store   Store

	publicKey []byte
	verifier  *bls.SecretKey

	// lattigo encoders and decryptors are not safe for concurrent use.
	cryptoLock sync.Mutex
	encoder    *bgv.Encoder
	decryptor  *rlwe.Decryptor

	aclLock    sync.Mutex
	plaintexts *cache.LRUCache[common.Hash, []uint64]
}

func NewNetwork(logger log.Logger, cfg NetworkConfig) (*Network, error) {
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("%w: chain id is required", fhevm.ErrInvalidConfig)
	}
	params, err := LoadParameters(cfg.ParamsPath)
	if err != nil {
		return nil, err
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	cacheSize := cfg.PlaintextCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultPlaintextCacheSize
	}

	sk, err := loadOrCreateSecretKey(logger, params, store)
	if err != nil {
		return nil, err
	}
	pk, err := rlwe.NewKeyGenerator(params).GenPublicKeyNew(sk).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrAllocation, err)
	}
	verifier, err := bls.NewSecretKey()
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier key: %w", err)
	}

	n := &Network{
		log:        logger,
		chainID:    cfg.ChainID,
		params:     params,
		store:      store,
		publicKey:  pk,
		verifier:   verifier,
		encoder:    bgv.NewEncoder(params),
		decryptor:  rlwe.NewDecryptor(params, sk),
		plaintexts: cache.NewLRUCache[common.Hash, []uint64](cacheSize),
	}
	logger.Info(
		"Started fhevm network",
		log.Uint64("chainID", cfg.ChainID),
		log.Int("slots", params.MaxSlots()),
		log.String("publicKeyID", n.publicKeyID()),
	)
	return n, nil
}

func loadOrCreateSecretKey(logger log.Logger, params bgv.Parameters, store Store) (*rlwe.SecretKey, error) {
	raw, err := store.Get(secretKeyKey)
	switch {
	case err == nil:
		sk := rlwe.NewSecretKey(params)
		if err := sk.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: stored secret key: %w", engine.ErrAllocation, err)
		}
		logger.Debug("Loaded network secret key")
		return sk, nil
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	sk := rlwe.NewKeyGenerator(params).GenSecretKeyNew()
	raw, err = sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrAllocation, err)
	}
	if err := store.Put(secretKeyKey, raw); err != nil {
		return nil, err
	}
	logger.Info("Generated network secret key")
	return sk, nil
}

func (n *Network) ChainID() uint64 {
	return n.chainID
}

func (n *Network) VerifierPublicKey() *bls.PublicKey {
	return bls.PublicFromSecretKey(n.verifier)
}

func (n *Network) publicKeyID() string {
	return common.Keccak256Hash(n.publicKey).Hex()
}

func (n *Network) KeyInfo(context.Context) (*gateway.KeyURLResult, error) {
	return &gateway.KeyURLResult{
		ChainID: n.chainID,
		FheKeyInfo: []gateway.FheKeyInfo{{
			FhePublicKey: gateway.KeyRef{
				DataID: n.publicKeyID(),
				URLs:   []string{gateway.PublicKeyPath},
			},
		}},
		VerifierPublicKey: bls.PublicKeyToCompressedBytes(n.VerifierPublicKey()),
	}, nil
}

func (n *Network) PublicKey(context.Context) ([]byte, error) {
	return n.publicKey, nil
}

// VerifyInput checks that every packed value fits its declared type, stores
// the ciphertext and returns handles attested by the verifier. The contract
// and the user are both allowed to decrypt the new handles.
func (n *Network) VerifyInput(_ context.Context, req *gateway.InputProofRequest) (*gateway.InputProofResult, error) {
	if req.ContractChainID != n.chainID {
		return nil, fmt.Errorf("%w: input for chain %d submitted to chain %d", engine.ErrInvalidProof, req.ContractChainID, n.chainID)
	}
	if err := checkTypes(req.Types); err != nil {
		return nil, err
	}

	slots, err := n.decrypt(req.Ciphertext)
	if err != nil {
		return nil, err
	}
	for i, t := range req.Types {
		if _, err := unpackValue(slots, i, t); err != nil {
			return nil, err
		}
	}
	for i := len(req.Types) * limbsPerValue; i < len(slots); i++ {
		if slots[i] != 0 {
			return nil, fmt.Errorf("%w: data past the last declared value", engine.ErrInvalidProof)
		}
	}

	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], n.chainID)
	inputHash := common.Keccak256Hash(req.Ciphertext, req.ContractAddress.Bytes(), req.UserAddress.Bytes(), chain[:])
	if err := n.store.Put(ciphertextKey(inputHash), req.Ciphertext); err != nil {
		return nil, err
	}

	allowed := set.Of(req.ContractAddress, req.UserAddress).List()
	proof := InputProof{
		ChainID:  n.chainID,
		Contract: req.ContractAddress,
		User:     req.UserAddress,
		Handles:  make([]fhevm.Handle, len(req.Types)),
	}
	for i, t := range req.Types {
		h := fhevm.NewHandle(inputHash, uint8(i), n.chainID, t)
		rec := handleRecord{
			InputHash: inputHash,
			Index:     uint8(i),
			Type:      t,
			Allowed:   allowed,
		}
		if err := n.putRecord(h, &rec); err != nil {
			return nil, err
		}
		proof.Handles[i] = h
	}
	if err := proof.sign(n.verifier); err != nil {
		return nil, fmt.Errorf("failed to sign input proof: %w", err)
	}
	b, err := proof.Bytes()
	if err != nil {
		return nil, err
	}

	n.log.Debug(
		"Verified encrypted input",
		log.Stringer("inputHash", inputHash),
		log.Int("values", len(req.Types)),
		log.Stringer("contract", req.ContractAddress),
		log.Stringer("user", req.UserAddress),
	)
	return &gateway.InputProofResult{
		Handles: proof.Handles,
		Proof:   b,
	}, nil
}

func checkTypes(types []fhevm.ValueType) error {
	if len(types) == 0 {
		return fhevm.ErrEmptyInput
	}
	if len(types) > fhevm.MaxInputValues {
		return fmt.Errorf("%w: %d values", fhevm.ErrInputTooLarge, len(types))
	}
	bits := 0
	for _, t := range types {
		if !t.Valid() {
			return fmt.Errorf("%w: %d", fhevm.ErrUnsupportedType, uint8(t))
		}
		bits += t.Bits()
	}
	if bits > fhevm.MaxInputBits {
		return fmt.Errorf("%w: %d bits", fhevm.ErrInputTooLarge, bits)
	}
	return nil
}

// Allow grants addrs the right to decrypt h.
func (n *Network) Allow(h fhevm.Handle, addrs ...common.Address) error {
	n.aclLock.Lock()
	defer n.aclLock.Unlock()

	rec, err := n.record(h)
	if err != nil {
		return err
	}
	allowed := set.Of(rec.Allowed...)
	allowed.Add(addrs...)
	rec.Allowed = allowed.List()
	return n.putRecord(h, rec)
}

// IsAllowed reports whether addr may decrypt h.
func (n *Network) IsAllowed(h fhevm.Handle, addr common.Address) (bool, error) {
	rec, err := n.record(h)
	if err != nil {
		return false, err
	}
	return set.Of(rec.Allowed...).Contains(addr), nil
}

// UserDecrypt re-encrypts a handle for the user. The request must be signed
// by the user over the EIP-712 authorization for the contract and the
// ephemeral public key, and both must be on the handle's ACL.
func (n *Network) UserDecrypt(ctx context.Context, req *gateway.UserDecryptRequest) (*gateway.UserDecryptResult, error) {
	if req.ContractChainID != n.chainID || req.Handle.ChainID() != n.chainID {
		return nil, fmt.Errorf("%w: handle %s on chain %d", engine.ErrUnknownHandle, req.Handle, n.chainID)
	}
	if len(req.PublicKey) != 32 {
		return nil, fmt.Errorf("%w: public key must be 32 bytes, got %d", engine.ErrUnauthorized, len(req.PublicKey))
	}
	auth := fhevm.Authorization{
		ChainID:           n.chainID,
		VerifyingContract: req.ContractAddress,
		PublicKey:         req.PublicKey,
	}
	signer, err := auth.RecoverSigner(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrUnauthorized, err)
	}
	if signer != req.UserAddress {
		return nil, fmt.Errorf("%w: signed by %s, not %s", engine.ErrUnauthorized, signer, req.UserAddress)
	}

	rec, err := n.record(req.Handle)
	if err != nil {
		return nil, err
	}
	allowed := set.Of(rec.Allowed...)
	if !allowed.Contains(req.ContractAddress) || !allowed.Contains(req.UserAddress) {
		return nil, fmt.Errorf("%w: %s is not allowed for %s", engine.ErrUnauthorized, req.UserAddress, req.Handle)
	}

	slots, err := n.plaintexts.Get(ctx, rec.InputHash, n.fetchPlaintext, false)
	if err != nil {
		return nil, err
	}
	v, err := unpackValue(slots, int(rec.Index), rec.Type)
	if err != nil {
		return nil, err
	}

	word := v.Int.Bytes32()
	var pub [32]byte
	copy(pub[:], req.PublicKey)
	sealed, err := box.SealAnonymous(nil, word[:], &pub, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to seal cleartext: %w", err)
	}

	n.log.Debug(
		"Served user decryption",
		log.Stringer("handle", req.Handle),
		log.Stringer("user", req.UserAddress),
	)
	return &gateway.UserDecryptResult{Payload: hexutil.Bytes(sealed)}, nil
}

func (n *Network) HealthCheck(context.Context) error {
	return n.store.Healthy()
}

func (n *Network) Close() error {
	return n.store.Close()
}

func (n *Network) fetchPlaintext(_ context.Context, inputHash common.Hash) ([]uint64, error) {
	raw, err := n.store.Get(ciphertextKey(inputHash))
	if err != nil {
		return nil, fmt.Errorf("ciphertext %s: %w", inputHash, err)
	}
	return n.decrypt(raw)
}

func (n *Network) decrypt(raw []byte) ([]uint64, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext: %w", engine.ErrInvalidProof, err)
	}
	if ct.Degree() != 1 || ct.Level() > n.params.MaxLevel() || len(ct.Value[0].Coeffs[0]) != n.params.N() {
		return nil, fmt.Errorf("%w: ciphertext does not match the network parameters", engine.ErrInvalidProof)
	}

	n.cryptoLock.Lock()
	defer n.cryptoLock.Unlock()

	slots := make([]uint64, n.params.MaxSlots())
	if err := n.encoder.Decode(n.decryptor.DecryptNew(ct), slots); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrInvalidProof, err)
	}
	return slots, nil
}

func (n *Network) record(h fhevm.Handle) (*handleRecord, error) {
	raw, err := n.store.Get(handleKey(h))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownHandle, h)
	}
	if err != nil {
		return nil, err
	}
	rec := new(handleRecord)
	if _, err := fhevm.Codec.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (n *Network) putRecord(h fhevm.Handle, rec *handleRecord) error {
	b, err := fhevm.Codec.Marshal(fhevm.CodecVersion, rec)
	if err != nil {
		return err
	}
	return n.store.Put(handleKey(h), b)
}
