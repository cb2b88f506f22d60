// Package chain provides entropy sources for the distribution engine.
//
// Every source implements engine.EntropySource: Future names a block that
// does not exist yet and Resolve returns its hash once it does.
//
//   - EthSource reads an Ethereum JSON-RPC endpoint via go-ethereum's ethclient.
//   - BoltCache pins the first hash observed for each block number in a bbolt
//     file, so a restarted process re-derives the same automatic seed.
//   - StaticSource is an in-memory chain for tests, scenario runs and offline
//     operation.
package chain
