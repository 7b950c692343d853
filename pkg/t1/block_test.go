package t1

import "testing"

func TestDecodePCBClassifiesIBlock(t *testing.T) {
	b := decodePCB(0x40) // N(S)=1, no chain
	if b.Kind != blockI || b.NS != 1 || b.Chain {
		t.Fatalf("got %+v", b)
	}
	b = decodePCB(0x20) // N(S)=0, chained
	if b.Kind != blockI || b.NS != 0 || !b.Chain {
		t.Fatalf("got %+v", b)
	}
}

func TestDecodePCBClassifiesRBlock(t *testing.T) {
	b := decodePCB(0x90) // 1001 0000: N(R)=1, sub=0 (OK)
	if b.Kind != blockR || b.NR != 1 || b.RSub != rOK {
		t.Fatalf("got %+v", b)
	}
	b = decodePCB(0x81) // N(R)=0, sub=1 (CRC error)
	if b.Kind != blockR || b.NR != 0 || b.RSub != rCRCError {
		t.Fatalf("got %+v", b)
	}
}

func TestDecodePCBClassifiesSBlock(t *testing.T) {
	b := decodePCB(0xC3) // request, kind=3 (WTX)
	if b.Kind != blockS || !b.SRequest || b.SKind != sWTX {
		t.Fatalf("got %+v", b)
	}
	b = decodePCB(0xEF) // response (bit5 set), kind=0x0F (SWR)
	if b.Kind != blockS || b.SRequest || b.SKind != sSWR {
		t.Fatalf("got %+v", b)
	}
}

func TestEncodeDecodeIPCBRoundTrip(t *testing.T) {
	for _, ns := range []int{0, 1} {
		for _, chain := range []bool{false, true} {
			pcb := encodeIPCB(ns, chain)
			b := decodePCB(pcb)
			if b.Kind != blockI || b.NS != ns || b.Chain != chain {
				t.Fatalf("ns=%d chain=%v: got %+v", ns, chain, b)
			}
		}
	}
}

func TestEncodeDecodeRPCBRoundTrip(t *testing.T) {
	for _, nr := range []int{0, 1} {
		for _, sub := range []rKind{rOK, rCRCError, rOtherError, rReserved} {
			pcb := encodeRPCB(nr, sub)
			b := decodePCB(pcb)
			if b.Kind != blockR || b.NR != nr || b.RSub != sub {
				t.Fatalf("nr=%d sub=%d: got %+v", nr, sub, b)
			}
		}
	}
}

func TestEncodeDecodeSPCBRoundTrip(t *testing.T) {
	for _, req := range []bool{true, false} {
		for _, kind := range []sKind{sResync, sIFS, sAbort, sWTX, sCIP, sSWR} {
			pcb := encodeSPCB(req, kind)
			b := decodePCB(pcb)
			if b.Kind != blockS || b.SRequest != req || b.SKind != kind {
				t.Fatalf("req=%v kind=%d: got %+v", req, kind, b)
			}
		}
	}
}
