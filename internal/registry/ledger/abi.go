package ledger

// RegistryABI is the interface of the participant registry contract. The
// contract reverts with the custom errors DuplicateIdentity, DomainTaken,
// ProofConsumed and InvalidProof.
const RegistryABI = `[
  {"type":"function","name":"getRecord","stateMutability":"view",
   "inputs":[{"name":"identity","type":"address"}],
   "outputs":[{"name":"role","type":"uint8"},{"name":"emailCommitment","type":"bytes32"},{"name":"registeredAt","type":"uint64"},{"name":"isActive","type":"bool"},{"name":"originatingRequestId","type":"bytes16"}]},
  {"type":"function","name":"getOrganizationRecord","stateMutability":"view",
   "inputs":[{"name":"identity","type":"address"}],
   "outputs":[{"name":"role","type":"uint8"},{"name":"emailCommitment","type":"bytes32"},{"name":"registeredAt","type":"uint64"},{"name":"isActive","type":"bool"},{"name":"originatingRequestId","type":"bytes16"},{"name":"domain","type":"string"},{"name":"organizationName","type":"string"}]},
  {"type":"function","name":"isDomainTaken","stateMutability":"view",
   "inputs":[{"name":"domain","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isProofConsumed","stateMutability":"view",
   "inputs":[{"name":"proofId","type":"bytes32"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"stats","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"patients","type":"uint256"},{"name":"hospitals","type":"uint256"},{"name":"insurers","type":"uint256"}]},
  {"type":"function","name":"registerPatient","stateMutability":"nonpayable",
   "inputs":[{"name":"identity","type":"address"},{"name":"proof","type":"bytes"},{"name":"emailCommitment","type":"bytes32"},{"name":"domain","type":"string"},{"name":"requestId","type":"bytes16"}],
   "outputs":[]},
  {"type":"function","name":"registerHospital","stateMutability":"nonpayable",
   "inputs":[{"name":"identity","type":"address"},{"name":"proof","type":"bytes"},{"name":"emailCommitment","type":"bytes32"},{"name":"domain","type":"string"},{"name":"organizationName","type":"string"},{"name":"requestId","type":"bytes16"}],
   "outputs":[]},
  {"type":"function","name":"registerInsurer","stateMutability":"nonpayable",
   "inputs":[{"name":"identity","type":"address"},{"name":"proof","type":"bytes"},{"name":"emailCommitment","type":"bytes32"},{"name":"domain","type":"string"},{"name":"organizationName","type":"string"},{"name":"requestId","type":"bytes16"}],
   "outputs":[]},
  {"type":"function","name":"setActive","stateMutability":"nonpayable",
   "inputs":[{"name":"identity","type":"address"},{"name":"active","type":"bool"}],
   "outputs":[]},
  {"type":"error","name":"DuplicateIdentity","inputs":[]},
  {"type":"error","name":"DomainTaken","inputs":[]},
  {"type":"error","name":"ProofConsumed","inputs":[]},
  {"type":"error","name":"InvalidProof","inputs":[]},
  {"type":"error","name":"UnknownIdentity","inputs":[]}
]`
