//go:build tinygo

// Package handoff performs the final, irreversible jump from the
// bootloader into the selected application slot: stop SysTick, disable and
// clear NVIC interrupt lines 0-31, relocate the vector table to the target
// slot, and branch to its reset vector with the stack pointer it declares.
// Other peripherals are not reset here.
//
// There is nothing here to host-test — it never returns, and the state it
// manipulates (VTOR, SysTick, NVIC, the stack pointer) only exists on
// real silicon. Component G's decision of *which* address to jump to is
// made by bootcore and is fully covered there; this package only performs
// the jump once that address is known.
package handoff

/*
#include <stdint.h>

// SCB registers, memory-mapped on every Cortex-M with a vector table
// relocation feature (ACTLR/VTOR). Offsets match the ARMv6-M/v7-M SCB
// layout used throughout the teacher's ota.go reboot path.
#define SCB_VTOR   (*(volatile uint32_t *)0xE000ED08)
#define SCB_AIRCR  (*(volatile uint32_t *)0xE000ED0C)
#define SYST_CSR   (*(volatile uint32_t *)0xE000E010)
#define NVIC_ICER0 (*(volatile uint32_t *)0xE000E180)
#define NVIC_ICPR0 (*(volatile uint32_t *)0xE000E280)

#define AIRCR_VECTKEY      (0x05FAU << 16)
#define AIRCR_SYSRESETREQ  (1U << 2)

static inline void quiesce(void) {
    // Stop SysTick so it cannot fire mid-relocation.
    SYST_CSR = 0;
    // Disable and clear NVIC interrupt lines 0-31 (register bank 0 only;
    // lines 32 and above are left as they are). The bootloader's own
    // peripherals (network, timers) are reset by the application's own
    // init path; this only guarantees no stale handler fires into
    // relocated-but-not-yet-valid vectors.
    NVIC_ICER0 = 0xFFFFFFFF;
    NVIC_ICPR0 = 0xFFFFFFFF;
}

// jump_to relocates VTOR to base and branches to the reset handler with
// the stack pointer both recorded at the start of the target's vector
// table, exactly as the CPU does on power-on reset. Never returns.
__attribute__((noreturn))
static inline void jump_to(uint32_t base) {
    uint32_t sp = ((volatile uint32_t *)base)[0];
    uint32_t resetVector = ((volatile uint32_t *)base)[1];

    __asm__ volatile ("cpsid i");
    SCB_VTOR = base;
    __asm__ volatile (
        "msr msp, %0 \n"
        "bx %1 \n"
        :
        : "r" (sp), "r" (resetVector)
    );
    for (;;) {}
}

__attribute__((noreturn))
static inline void soft_reset(void) {
    __asm__ volatile ("dsb" : : : "memory");
    SCB_AIRCR = AIRCR_VECTKEY | AIRCR_SYSRESETREQ;
    __asm__ volatile ("dsb" : : : "memory");
    for (;;) {}
}
*/
import "C"

// Jump quiesces the bootloader's own interrupt sources and transfers
// control to the application image whose vector table begins at base. It
// never returns; any code after calling Jump is unreachable.
func Jump(base uint32) {
	C.quiesce()
	C.jump_to(C.uint32_t(base))
}

// SoftReset requests a full system reset via the SCB's AIRCR register,
// for the recovery server's explicit GET /reboot path. It never returns.
func SoftReset() {
	C.soft_reset()
}
