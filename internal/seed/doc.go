// Package seed holds the hashing primitives behind the guardian commitment
// scheme.
//
// The guardian commitment is a two-stage chain:
//
//	password --keccak256--> seed --keccak256--> commitment
//
// The commitment is published before the distribution starts. After the
// distribution ends the guardian reveals the seed (or the password, from which
// the seed is derived), and anyone can check it against the commitment.
//
// All hashes are keccak256 over tightly packed bytes, so every value computed
// here can be reproduced on an EVM chain with keccak256(abi.encodePacked(...)).
//
// # Trust assumption
//
// Verification only proves that the revealed seed matches the commitment. It
// cannot prove that the guardian chose the seed honestly before committing, nor
// that the guardian kept it secret. That is accepted, not a defect.
package seed
