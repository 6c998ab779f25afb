// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package local

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bgv"
	"golang.org/x/crypto/nacl/box"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/gateway"
)

// Name identifies the bundled engine.
const Name = "lattigo-bgv"

var (
	_ engine.Engine   = (*Engine)(nil)
	_ engine.Instance = (*Instance)(nil)

	errNotInitialized = errors.New("engine not initialized")
	errInstanceClosed = errors.New("instance closed")
)

// Engine encrypts inputs with BGV and talks to the network through its
// gateway.
type Engine struct {
	log  log.Logger
	keys *gateway.KeyFetcher

	lock     sync.Mutex
	params   *bgv.Parameters
	initOpts engine.InitOptions
}

// NewEngine returns the bundled engine. A nil httpClient selects the
// gateway default.
func NewEngine(logger log.Logger, httpClient *http.Client) *Engine {
	return &Engine{
		log:  logger,
		keys: gateway.NewKeyFetcher(httpClient, gateway.DefaultKeyTTL),
	}
}

func (*Engine) Name() string {
	return Name
}

// Init loads the BGV parameters from opts.ParamsPath. When opts.KeysPath is
// set, network public keys are cached in that file.
func (e *Engine) Init(_ context.Context, opts engine.InitOptions) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.params != nil && e.initOpts == opts {
		return nil
	}
	params, err := LoadParameters(opts.ParamsPath)
	if err != nil {
		return err
	}
	e.params = &params
	e.initOpts = opts
	e.log.Debug(
		"Initialized bundled engine",
		log.Int("logN", params.LogN()),
		log.Uint64("plaintextModulus", params.PlaintextModulus()),
	)
	return nil
}

func (e *Engine) CreateInstance(ctx context.Context, cfg engine.InstanceConfig) (engine.Instance, error) {
	e.lock.Lock()
	params, opts := e.params, e.initOpts
	e.lock.Unlock()
	if params == nil {
		return nil, errNotInitialized
	}

	client := e.keys.Client(cfg.GatewayURL)
	raw, err := e.publicKey(ctx, client, cfg, opts.KeysPath)
	if err != nil {
		return nil, err
	}
	pk := rlwe.NewPublicKey(*params)
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: network public key does not match the engine parameters: %w", engine.ErrAllocation, err)
	}

	e.log.Info(
		"Created bundled engine instance",
		log.Uint64("chainID", cfg.ChainID),
		log.String("gateway", cfg.GatewayURL),
	)
	return &Instance{
		log:       e.log,
		chainID:   cfg.ChainID,
		network:   cfg.Network,
		publicKey: raw,
		client:    client,
		params:    *params,
		encoder:   bgv.NewEncoder(*params),
		encryptor: rlwe.NewEncryptor(*params, pk),
	}, nil
}

// publicKey prefers the configured key, then the key file, then the gateway.
func (e *Engine) publicKey(ctx context.Context, client *gateway.Client, cfg engine.InstanceConfig, keysPath string) ([]byte, error) {
	if len(cfg.PublicKey) > 0 {
		return cfg.PublicKey, nil
	}
	if keysPath != "" {
		if raw, err := os.ReadFile(keysPath); err == nil && len(raw) > 0 {
			return raw, nil
		}
	}
	raw, err := client.PublicKey(ctx)
	if err != nil {
		return nil, err
	}
	if keysPath != "" {
		if err := os.WriteFile(keysPath, raw, 0o600); err != nil {
			e.log.Warn("Failed to cache network public key", log.String("path", keysPath), log.Err(err))
		}
	}
	return raw, nil
}

// Instance is a bundled engine session bound to one chain and gateway.
type Instance struct {
	log       log.Logger
	chainID   uint64
	network   string
	publicKey []byte
	client    *gateway.Client
	params    bgv.Parameters

	lock      sync.Mutex
	encoder   *bgv.Encoder
	encryptor *rlwe.Encryptor
	closed    bool
}

func (i *Instance) ChainID() uint64 {
	return i.chainID
}

func (i *Instance) PublicKey() []byte {
	return i.publicKey
}

// Network returns the chain RPC endpoint the instance was created for.
func (i *Instance) Network() string {
	return i.network
}

func (i *Instance) CreateEncryptedInput(contract, user common.Address) (engine.EncryptedInput, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if i.closed {
		return nil, errInstanceClosed
	}
	return &Input{
		instance: i,
		contract: contract,
		user:     user,
	}, nil
}

func (*Instance) GenerateKeypair() (*engine.Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &engine.Keypair{
		PublicKey:  pub[:],
		PrivateKey: priv[:],
	}, nil
}

func (i *Instance) Reencrypt(ctx context.Context, req *engine.ReencryptRequest) (*uint256.Int, error) {
	if len(req.Keypair.PublicKey) != 32 || len(req.Keypair.PrivateKey) != 32 {
		return nil, errors.New("malformed re-encryption keypair")
	}
	res, err := i.client.UserDecrypt(ctx, &gateway.UserDecryptRequest{
		ContractChainID: i.chainID,
		Handle:          req.Handle,
		ContractAddress: req.Contract,
		UserAddress:     req.User,
		PublicKey:       req.Keypair.PublicKey,
		Signature:       req.Signature,
	})
	if err != nil {
		return nil, err
	}

	var pub, priv [32]byte
	copy(pub[:], req.Keypair.PublicKey)
	copy(priv[:], req.Keypair.PrivateKey)
	defer func() { priv = [32]byte{} }()

	word, ok := box.OpenAnonymous(nil, res.Payload, &pub, &priv)
	if !ok || len(word) != 32 {
		return nil, errors.New("failed to open re-encrypted value")
	}
	return new(uint256.Int).SetBytes32(word), nil
}

func (i *Instance) Close() error {
	i.lock.Lock()
	defer i.lock.Unlock()

	i.closed = true
	return nil
}

// encrypt packs values into one ciphertext.
func (i *Instance) encrypt(values []fhevm.Value) ([]byte, error) {
	slots, err := packValues(values, i.params.MaxSlots())
	if err != nil {
		return nil, err
	}

	i.lock.Lock()
	defer i.lock.Unlock()

	if i.closed {
		return nil, errInstanceClosed
	}
	pt := bgv.NewPlaintext(i.params, inputLevel)
	if err := i.encoder.Encode(slots, pt); err != nil {
		return nil, err
	}
	ct, err := i.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, err
	}
	return ct.MarshalBinary()
}

func (i *Instance) verifierKey(ctx context.Context) (*bls.PublicKey, error) {
	info, err := i.client.KeyURL(ctx)
	if err != nil {
		return nil, err
	}
	pk, err := bls.PublicKeyFromCompressedBytes(info.VerifierPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: verifier key: %w", engine.ErrInvalidProof, err)
	}
	return pk, nil
}
