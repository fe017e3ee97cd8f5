// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// keyring maps every output script a set of private keys can spend to the
// key. It lives for a single signing call and is wiped when the call
// returns, so the wallet never holds on to key material.
type keyring struct {
	keys map[string]*btcec.PrivateKey
}

// newKeyring derives the output scripts of every spendable script type for
// each key.
func newKeyring(params *chaincfg.Params,
	keys ...*btcec.PrivateKey) (*keyring, error) {

	kr := &keyring{
		keys: make(map[string]*btcec.PrivateKey, len(keys)*4),
	}

	for i, key := range keys {
		if key == nil {
			return nil, fmt.Errorf("%w: key %d is nil",
				ErrMalformedInput, i)
		}

		for _, scriptType := range spendableScriptTypes {
			addr, err := AddressFor(scriptType, key.PubKey(), params)
			if err != nil {
				return nil, err
			}

			pkScript, err := txscript.PayToAddrScript(addr)
			if err != nil {
				return nil, err
			}

			kr.keys[string(pkScript)] = key
		}
	}

	return kr, nil
}

// keyFor returns the key able to spend pkScript.
func (k *keyring) keyFor(pkScript []byte) (*btcec.PrivateKey, bool) {
	key, ok := k.keys[string(pkScript)]
	return key, ok
}

// wipe drops every key reference. The caller's keys are left untouched.
func (k *keyring) wipe() {
	clear(k.keys)
}
