package main

import (
	"log/slog"

	"github.com/witnet-go/core/consensus"
	"github.com/witnet-go/core/cryptoutil"
	"github.com/witnet-go/core/radon"
	"github.com/witnet-go/core/store"
	"github.com/witnet-go/core/txpool"
)

// mineLocally drives up to n epochs of the single-node devnet mining loop:
// check this signer's block-leadership eligibility, and if eligible,
// build, sign and apply a block over whatever the pool currently holds.
// Real networks gate this on the wall-clock epoch and broadcast the
// result instead of applying it locally; this is the devnet convenience
// the teacher's own "-mine-blocks" flag offers for its own skeleton node.
func mineLocally(cm *consensus.ChainManager, db *store.DB, pool *txpool.Pool, rad radon.Evaluator, params consensus.Params, wips consensus.ActiveWips, signer *cryptoutil.Signer, n int, logger *slog.Logger) ([]*consensus.Block, error) {
	var mined []*consensus.Block
	for i := 0; i < n; i++ {
		vtCandidates := pool.ByKind(consensus.KindValueTransfer)
		drCandidates := pool.ByKind(consensus.KindDataRequest)
		commits := pool.Commits()
		reveals := pool.Reveals()

		block, eligible, err := cm.TryMineBlock(signer, vtCandidates, drCandidates, commits, reveals, nil)
		if err != nil {
			return mined, err
		}
		if !eligible {
			logger.Debug("not eligible to mine this round", "round", i)
			continue
		}

		sig, err := signer.Sign(block.Header.Hash())
		if err != nil {
			return mined, err
		}
		block.BlockSig = sig

		if err := cm.ApplyBlock(block, block.Header.Beacon.Checkpoint); err != nil {
			return mined, err
		}

		for _, tx := range block.Txns.All() {
			pool.Remove(tx.Hash())
		}

		if err := db.PutBlockHash(block.Header.Beacon.Checkpoint, block.Hash()); err != nil {
			return mined, err
		}
		if err := db.PutBlockBytes(block.Hash(), consensus.EncodeBlockHeader(block.Header)); err != nil {
			return mined, err
		}
		if err := db.PutChainInfo(consensus.ChainInfo{GenesisHash: params.GenesisHash, Tip: cm.Tip()}); err != nil {
			return mined, err
		}

		mined = append(mined, block)
		logger.Info("mined block", "checkpoint", block.Header.Beacon.Checkpoint, "hash", block.Hash().String())
	}
	return mined, nil
}
